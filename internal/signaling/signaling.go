// Package signaling implements SigningRelay (spec.md §4.5): a connection
// registry that multiplexes rooms, routes targeted WebRTC signaling
// frames, and fans out persisted, signature-verified chat broadcasts.
//
// The registry's two maps (conn→{room,name}, room→participants) are
// mutated only while holding Hub's mutex, per spec.md §5's note that the
// in-memory maps are either single-threaded or mutex-guarded.
package signaling

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/objectfs/docvfs/internal/messagestore"
	"github.com/objectfs/docvfs/pkg/types"
	"github.com/objectfs/docvfs/pkg/utils"
)

// Conn is the sending half of a signaling connection. golang.org/x/net's
// *websocket.Conn satisfies it via the connAdapter below; tests substitute
// a fake to exercise dispatch logic without a real socket.
type Conn interface {
	Send(v any) error
}

type connAdapter struct {
	ws *websocket.Conn
}

func (c connAdapter) Send(v any) error {
	return websocket.JSON.Send(c.ws, v)
}

type participant struct {
	conn Conn
	room string
	name string
}

// Hub owns the connection registry and dispatches wire messages per
// spec.md §4.5's handler table.
type Hub struct {
	mu       sync.Mutex
	conns    map[Conn]*participant
	rooms    map[string]map[Conn]*participant
	messages *messagestore.MessageStore
	verifier types.Verifier
	admin    string
	log      utils.Printer
}

// New constructs a Hub. verifier may be nil, in which case every signed
// message is treated as verified — callers wiring production signaling
// must supply a real ECDSA verifier (spec.md §1 treats the verify
// primitive as an external collaborator). log may be a plain *utils.Logger
// or a utils.StructuredPrinter wrapping a structured/JSON logger.
func New(messages *messagestore.MessageStore, verifier types.Verifier, adminPubKey string, log utils.Printer) *Hub {
	if log == nil {
		log = utils.NewLogger(utils.INFO, os.Stdout)
	}
	return &Hub{
		conns:    make(map[Conn]*participant),
		rooms:    make(map[string]map[Conn]*participant),
		messages: messages,
		verifier: verifier,
		admin:    adminPubKey,
		log:      log,
	}
}

// Handler returns an http.Handler that upgrades incoming requests to
// WebSocket and runs Serve for the lifetime of the connection.
func (h *Hub) Handler() websocket.Handler {
	return func(ws *websocket.Conn) {
		h.Serve(ws.Request().Context(), connAdapter{ws: ws}, func() (json.RawMessage, error) {
			var raw json.RawMessage
			if err := websocket.JSON.Receive(ws, &raw); err != nil {
				return nil, err
			}
			return raw, nil
		})
	}
}

// Serve runs the receive loop for one connection until recv returns an
// error (transport closed), then runs onClose. An uncaught handler error
// is caught and logged per spec.md §4.5's failure model; the connection
// stays open unless the transport itself fails.
func (h *Hub) Serve(ctx context.Context, conn Conn, recv func() (json.RawMessage, error)) {
	for {
		raw, err := recv()
		if err != nil {
			break
		}
		h.dispatch(ctx, conn, raw)
	}
	h.onClose(ctx, conn)
}

func (h *Hub) dispatch(ctx context.Context, conn Conn, raw json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("signaling: recovered panic in handler: %v", r)
		}
	}()

	var env types.WireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.log.Warn("signaling: malformed message: %v", err)
		return
	}

	switch env.Type {
	case "join":
		var msg types.JoinMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.log.Warn("signaling: malformed join: %v", err)
			return
		}
		h.onJoin(conn, msg)
	case "offer", "answer", "ice-candidate":
		h.onSignaling(conn, raw, env.Type)
	case "broadcast":
		var msg types.BroadcastMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.log.Warn("signaling: malformed broadcast: %v", err)
			return
		}
		h.onBroadcast(ctx, conn, raw, msg)
	case "delete-msg":
		var msg types.DeleteMsgMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.log.Warn("signaling: malformed delete-msg: %v", err)
			return
		}
		h.onDeleteMessage(ctx, conn, msg)
	default:
		h.log.Debug("signaling: ignoring unknown message type %q", env.Type)
	}
}

// onJoin records conn in both maps, replies with the existing
// participants (excluding the joiner), and announces the joiner to the
// rest of the room.
func (h *Hub) onJoin(conn Conn, msg types.JoinMessage) {
	h.mu.Lock()
	p := &participant{conn: conn, room: msg.Room, name: msg.User}
	h.conns[conn] = p
	if h.rooms[msg.Room] == nil {
		h.rooms[msg.Room] = make(map[Conn]*participant)
	}
	existing := make([]string, 0, len(h.rooms[msg.Room]))
	others := make([]Conn, 0, len(h.rooms[msg.Room]))
	for c, other := range h.rooms[msg.Room] {
		existing = append(existing, other.name)
		others = append(others, c)
	}
	h.rooms[msg.Room][conn] = p
	h.mu.Unlock()

	sort.Strings(existing)
	if err := conn.Send(types.RoomInfoMessage{Type: "room-info", Participants: existing, Room: msg.Room}); err != nil {
		h.log.Warn("signaling: send room-info to %s failed: %v", msg.User, err)
	}

	h.fanout(others, types.UserJoinedMessage{Type: "user-joined", User: msg.User, Room: msg.Room})
}

// onSignaling forwards an offer/answer/ice-candidate to the unique
// connection in the sender's room whose name matches Target, stamping
// sender and room. If the target isn't found, the frame is dropped.
func (h *Hub) onSignaling(conn Conn, raw json.RawMessage, msgType string) {
	var target struct {
		Target string `json:"target"`
	}
	if err := json.Unmarshal(raw, &target); err != nil || target.Target == "" {
		h.log.Warn("signaling: %s missing target", msgType)
		return
	}

	h.mu.Lock()
	sender, ok := h.conns[conn]
	if !ok {
		h.mu.Unlock()
		return
	}
	var dest Conn
	for other, p := range h.rooms[sender.room] {
		if p.name == target.Target {
			dest = other
			break
		}
	}
	h.mu.Unlock()

	if dest == nil {
		h.log.Warn("signaling: %s target %q not found in room %q", msgType, target.Target, sender.room)
		return
	}

	stamped := map[string]any{}
	if err := json.Unmarshal(raw, &stamped); err != nil {
		return
	}
	stamped["sender"] = sender.name
	stamped["room"] = sender.room
	if err := dest.Send(stamped); err != nil {
		h.log.Warn("signaling: forward %s to %q failed: %v", msgType, target.Target, err)
	}
}

// onBroadcast verifies the signature, checks the blocklist, persists the
// message fire-and-forget, then fans out to every other room member.
func (h *Hub) onBroadcast(ctx context.Context, conn Conn, raw json.RawMessage, msg types.BroadcastMessage) {
	if !h.verify(raw, msg.PublicKey, msg.Signature) {
		h.log.Warn("signaling: broadcast with invalid signature dropped (room=%s)", msg.Room)
		return
	}

	if h.messages != nil && msg.PublicKey != "" {
		blocked, err := h.messages.IsBlocked(ctx, msg.PublicKey)
		if err != nil {
			h.log.Error("signaling: blocklist check failed: %v", err)
		} else if blocked {
			h.log.Warn("signaling: broadcast from blocked key %s dropped", msg.PublicKey)
			return
		}
	}

	if h.messages != nil {
		go func(ctx context.Context, room string, m types.Message) {
			if err := h.messages.Persist(ctx, room, m); err != nil {
				h.log.Error("signaling: persist failed for room %s: %v", room, err)
			}
		}(context.WithoutCancel(ctx), msg.Room, msg.Message)
	}

	h.mu.Lock()
	sender, ok := h.conns[conn]
	h.mu.Unlock()
	if !ok {
		return
	}

	msg.Sender = sender.name
	h.fanout(h.snapshotRoomExcept(sender.room, conn), msg)
}

// onDeleteMessage deletes via MessageStore (authorization enforced there)
// and fans out a delete-msg notification on success.
func (h *Hub) onDeleteMessage(ctx context.Context, conn Conn, msg types.DeleteMsgMessage) {
	h.mu.Lock()
	sender, ok := h.conns[conn]
	h.mu.Unlock()
	if !ok {
		return
	}

	if h.messages == nil {
		return
	}
	if err := h.messages.DeleteMessage(ctx, msg.MessageID, msg.PublicKey, h.admin); err != nil {
		h.log.Warn("signaling: delete-msg %s refused: %v", msg.MessageID, err)
		return
	}

	h.fanout(h.snapshotRoom(sender.room), types.DeleteMsgMessage{Type: "delete-msg", MessageID: msg.MessageID, Room: sender.room})
}

// onClose removes conn from both maps; drops the room entry if now
// empty, else notifies remaining members.
func (h *Hub) onClose(_ context.Context, conn Conn) {
	h.mu.Lock()
	p, ok := h.conns[conn]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, conn)
	delete(h.rooms[p.room], conn)
	empty := len(h.rooms[p.room]) == 0
	remaining := make([]Conn, 0, len(h.rooms[p.room]))
	for c := range h.rooms[p.room] {
		remaining = append(remaining, c)
	}
	if empty {
		delete(h.rooms, p.room)
	}
	h.mu.Unlock()

	if !empty {
		h.fanout(remaining, types.UserLeftMessage{Type: "user-left", User: p.name, Room: p.room})
	}
}

// verify reports whether raw's signature is valid. An unsigned message
// (no publicKey/signature) is accepted — not every wire message requires
// a signature (spec.md §4.5 marks publicKey/signature as optional on
// join/offer/broadcast/delete-msg).
func (h *Hub) verify(raw json.RawMessage, publicKey, signature string) bool {
	if publicKey == "" || signature == "" {
		return true
	}
	if h.verifier == nil {
		return true
	}
	payload, err := canonicalPayload(raw)
	if err != nil {
		return false
	}
	return h.verifier.Verify(publicKey, payload, signature)
}

// canonicalPayload strips signature/publicKey and re-marshals with keys
// sorted, per spec.md §6.2. encoding/json sorts map[string]T keys on
// marshal, so decoding into a map and re-encoding is sufficient.
func canonicalPayload(raw json.RawMessage) ([]byte, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	delete(m, "signature")
	delete(m, "publicKey")
	return json.Marshal(m)
}

// snapshotRoom returns a defensive copy of a room's connections, taken
// under the lock, so fan-out can iterate without holding it (spec.md §5:
// broadcasts iterate a snapshot to avoid concurrent-modification issues).
func (h *Hub) snapshotRoom(room string) []Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Conn, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		out = append(out, c)
	}
	return out
}

func (h *Hub) snapshotRoomExcept(room string, except Conn) []Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Conn, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if c != except {
			out = append(out, c)
		}
	}
	return out
}

// RoomCount reports the number of active rooms, for the ops/health surface.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// fanout sends v to every connection in conns. A failed send to one
// recipient is logged and does not affect the others.
func (h *Hub) fanout(conns []Conn, v any) {
	for _, c := range conns {
		if err := c.Send(v); err != nil {
			h.log.Warn("signaling: fanout send failed: %v", err)
		}
	}
}
