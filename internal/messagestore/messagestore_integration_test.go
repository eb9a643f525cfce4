//go:build integration
// +build integration

package messagestore_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/objectfs/docvfs/internal/config"
	"github.com/objectfs/docvfs/internal/messagestore"
	"github.com/objectfs/docvfs/internal/store"
	"github.com/objectfs/docvfs/pkg/errors"
	"github.com/objectfs/docvfs/pkg/types"
)

// MessageStoreIntegrationSuite exercises spec.md §4.6 against a real
// Postgres instance. Requires POSTGRES_HOST; skipped otherwise.
type MessageStoreIntegrationSuite struct {
	suite.Suite
	ctx   context.Context
	store *store.Store
	msgs  *messagestore.MessageStore
}

func TestMessageStoreIntegration(t *testing.T) {
	if os.Getenv("POSTGRES_HOST") == "" {
		t.Skip("skipping messagestore integration tests - POSTGRES_HOST not configured")
	}
	suite.Run(t, new(MessageStoreIntegrationSuite))
}

func (s *MessageStoreIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	cfg := config.NewDefault().Database
	cfg.Host = os.Getenv("POSTGRES_HOST")

	st, err := store.New(s.ctx, cfg, nil)
	require.NoError(s.T(), err)
	require.NoError(s.T(), st.Bootstrap(s.ctx))

	s.store = st
	s.msgs = messagestore.New(st)
}

func (s *MessageStoreIntegrationSuite) TearDownSuite() {
	s.store.Close()
}

// Persisting the same message id twice is at-most-once: the second call
// succeeds silently and does not duplicate the row (P10).
func (s *MessageStoreIntegrationSuite) TestPersistIsIdempotent() {
	room := "ms1"
	msg := types.Message{ID: "m1", Timestamp: 1000, Sender: "alice", Content: "hi", PublicKey: "pk-alice"}

	require.NoError(s.T(), s.msgs.Persist(s.ctx, room, msg))
	require.NoError(s.T(), s.msgs.Persist(s.ctx, room, msg))

	got, err := s.msgs.GetMessagesByIds(s.ctx, []string{"m1"}, room)
	s.NoError(err)
	s.Len(got, 1)
}

// A message fetched by id is only returned when it belongs to the
// requested room, even if the id exists in another room.
func (s *MessageStoreIntegrationSuite) TestGetMessagesByIdsRoomScoped() {
	require.NoError(s.T(), s.msgs.Persist(s.ctx, "ms2-a", types.Message{ID: "shared-id", Timestamp: 1, Sender: "a", PublicKey: "pk-a"}))

	got, err := s.msgs.GetMessagesByIds(s.ctx, []string{"shared-id"}, "ms2-b")
	s.NoError(err)
	s.Empty(got)

	got, err = s.msgs.GetMessagesByIds(s.ctx, []string{"shared-id"}, "ms2-a")
	s.NoError(err)
	s.Len(got, 1)
}

// Scenario 6: admin-override-delete. A non-owning requester is refused;
// the admin key succeeds regardless of who authored the message.
func (s *MessageStoreIntegrationSuite) TestAdminOverrideDelete() {
	room := "ms3"
	require.NoError(s.T(), s.msgs.Persist(s.ctx, room, types.Message{
		ID: "del-1", Timestamp: 1, Sender: "bob", PublicKey: "pk-bob",
	}))

	err := s.msgs.DeleteMessage(s.ctx, "del-1", "pk-mallory", "pk-admin")
	s.True(errors.Is(err, errors.ErrCodeNotAuthorized))

	err = s.msgs.DeleteMessage(s.ctx, "del-1", "pk-admin", "pk-admin")
	s.NoError(err)

	got, err := s.msgs.GetMessagesByIds(s.ctx, []string{"del-1"}, room)
	s.NoError(err)
	s.Empty(got)
}
