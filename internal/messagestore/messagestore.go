// Package messagestore implements the persisted chat side of spec.md §4.6:
// at-most-once message persistence, id/room-scoped retrieval, and
// authorization-checked deletion. Every method consults the ambient
// txscope the same way internal/vfs does, so a caller already inside a
// TxScope (the signaling relay's onBroadcast/onDeleteMessage handlers)
// shares the outer transaction instead of opening a new one.
package messagestore

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/objectfs/docvfs/internal/store"
	"github.com/objectfs/docvfs/internal/txscope"
	"github.com/objectfs/docvfs/pkg/errors"
	"github.com/objectfs/docvfs/pkg/types"
)

// MessageStore implements the persistence primitives of spec.md §4.6.
type MessageStore struct {
	store *store.Store
}

// New constructs a MessageStore over the given Store.
func New(s *store.Store) *MessageStore {
	return &MessageStore{store: s}
}

func (m *MessageStore) client(ctx context.Context) store.Querier {
	if c := txscope.CurrentClient(ctx); c != nil {
		return c
	}
	return m.store.Pool()
}

func mapPGError(err error, op string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.Newf(errors.ErrCodeNotFound, "%s: not found", op)
	}
	var dvErr *errors.DocVFSError
	if stderrors.As(err, &dvErr) {
		return err
	}
	return errors.Newf(errors.ErrCodeInternalError, "%s: %v", op, err)
}

// dataURLBase64Marker is the separator inside the base64 data-URL form an
// attachment's inline payload arrives in: "data:<mime>;base64,<payload>".
const dataURLBase64Marker = ";base64,"

// decodeAttachmentData strips a data-URL wrapper and decodes the base64
// payload. If data isn't a data URL it's returned unchanged (already raw).
func decodeAttachmentData(data []byte) []byte {
	s := string(data)
	idx := strings.Index(s, dataURLBase64Marker)
	if idx < 0 {
		return data
	}
	payload := s[idx+len(dataURLBase64Marker):]
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return data
	}
	return decoded
}

// Persist inserts the room (if new) and the message by its client-chosen
// id (insert-or-ignore, at-most-once), then inserts one attachment row per
// file with base64-encoded inline data decoded to raw bytes. Runs inside
// the ambient TxScope.
func (m *MessageStore) Persist(ctx context.Context, room string, msg types.Message) error {
	return txscope.RunTrans(ctx, m.store, func(ctx context.Context) error {
		var roomID int64
		err := m.client(ctx).QueryRow(ctx, `
			INSERT INTO rooms (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, room).Scan(&roomID)
		if err != nil {
			return mapPGError(err, "persist: upsert room")
		}

		tag, err := m.client(ctx).Exec(ctx, `
			INSERT INTO messages (id, state, room_id, timestamp, sender, content, public_key, signature)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING
		`, msg.ID, types.MessageSaved, roomID, msg.Timestamp, msg.Sender, msg.Content, msg.PublicKey, msg.Signature)
		if err != nil {
			return mapPGError(err, "persist: insert message")
		}
		if tag.RowsAffected() == 0 {
			// Message with this id already persisted; at-most-once means
			// this is a success, not a conflict.
			return nil
		}

		for _, a := range msg.Attachments {
			data := decodeAttachmentData(a.Data)
			_, err := m.client(ctx).Exec(ctx, `
				INSERT INTO attachments (message_id, name, type, size, data)
				VALUES ($1, $2, $3, $4, $5)
			`, msg.ID, a.Name, a.Type, len(data), data)
			if err != nil {
				return mapPGError(err, "persist: insert attachment")
			}
		}
		return nil
	})
}

// GetMessagesByIds returns the requested messages with their attachments,
// filtered to only those belonging to room (a security boundary: a caller
// cannot fetch a message id that lives in a different room).
func (m *MessageStore) GetMessagesByIds(ctx context.Context, ids []string, room string) ([]types.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := m.client(ctx).Query(ctx, `
		SELECT msg.id, msg.room_id, msg.timestamp, msg.sender, msg.content,
		       msg.public_key, msg.signature, msg.state,
		       att.id, att.name, att.type, att.size, att.data
		FROM messages msg
		JOIN rooms r ON r.id = msg.room_id
		LEFT JOIN attachments att ON att.message_id = msg.id
		WHERE r.name = $1 AND msg.id = ANY($2)
		ORDER BY msg.timestamp ASC
	`, room, ids)
	if err != nil {
		return nil, mapPGError(err, "get_messages_by_ids")
	}
	defer rows.Close()

	byID := make(map[string]*types.Message)
	var order []string
	for rows.Next() {
		var msg types.Message
		var attID *int64
		var attName, attType *string
		var attSize *int64
		var attData []byte
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.Timestamp, &msg.Sender, &msg.Content,
			&msg.PublicKey, &msg.Signature, &msg.State,
			&attID, &attName, &attType, &attSize, &attData); err != nil {
			return nil, mapPGError(err, "get_messages_by_ids: scan")
		}
		existing, ok := byID[msg.ID]
		if !ok {
			m := msg
			byID[msg.ID] = &m
			existing = &m
			order = append(order, msg.ID)
		}
		if attID != nil {
			existing.Attachments = append(existing.Attachments, types.Attachment{
				ID: *attID, MessageID: msg.ID, Name: *attName, Type: *attType,
				Size: *attSize, Data: attData,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, mapPGError(err, "get_messages_by_ids: rows")
	}

	out := make([]types.Message, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

// GetMessageIdsForRoomSince returns the ids of messages in room with
// timestamp >= cutoffMs, oldest first.
func (m *MessageStore) GetMessageIdsForRoomSince(ctx context.Context, room string, cutoffMs int64) ([]string, error) {
	rows, err := m.client(ctx).Query(ctx, `
		SELECT msg.id FROM messages msg
		JOIN rooms r ON r.id = msg.room_id
		WHERE r.name = $1 AND msg.timestamp >= $2
		ORDER BY msg.timestamp ASC
	`, room, cutoffMs)
	if err != nil {
		return nil, mapPGError(err, "get_message_ids_for_room_since")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mapPGError(err, "get_message_ids_for_room_since: scan")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteMessage deletes messageId's attachments then the message itself,
// iff requesterPubKey matches the message's stored public key or matches
// adminPubKey. Runs inside the ambient TxScope.
func (m *MessageStore) DeleteMessage(ctx context.Context, messageID, requesterPubKey, adminPubKey string) error {
	return txscope.RunTrans(ctx, m.store, func(ctx context.Context) error {
		var storedPubKey string
		err := m.client(ctx).QueryRow(ctx, `SELECT public_key FROM messages WHERE id = $1`, messageID).Scan(&storedPubKey)
		if err != nil {
			return mapPGError(err, "delete_message: lookup")
		}

		authorized := requesterPubKey == storedPubKey
		if adminPubKey != "" && requesterPubKey == adminPubKey {
			authorized = true
		}
		if !authorized {
			return errors.Newf(errors.ErrCodeNotAuthorized, "not authorized to delete message %s", messageID)
		}

		if _, err := m.client(ctx).Exec(ctx, `DELETE FROM attachments WHERE message_id = $1`, messageID); err != nil {
			return mapPGError(err, "delete_message: attachments")
		}
		if _, err := m.client(ctx).Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID); err != nil {
			return mapPGError(err, "delete_message: message")
		}
		return nil
	})
}

// IsBlocked reports whether pubKey has an entry in blocked_keys.
func (m *MessageStore) IsBlocked(ctx context.Context, pubKey string) (bool, error) {
	var exists bool
	err := m.client(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM blocked_keys WHERE pub_key = $1)`, pubKey).Scan(&exists)
	if err != nil {
		return false, mapPGError(err, "is_blocked")
	}
	return exists, nil
}

// Block inserts pubKey into blocked_keys, idempotently.
func (m *MessageStore) Block(ctx context.Context, pubKey string) error {
	_, err := m.client(ctx).Exec(ctx, `
		INSERT INTO blocked_keys (pub_key, blocked_at) VALUES ($1, $2)
		ON CONFLICT (pub_key) DO NOTHING
	`, pubKey, time.Now().UnixMilli())
	return mapPGError(err, "block")
}
