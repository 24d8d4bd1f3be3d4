package repositories

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/repositories/repotest"
	"context"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func openBadger(t *testing.T, dir string) *badger.DB {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	return db
}

func Test_Badger_Message_Repository(t *testing.T) {
	repotest.RunMessageRepository(t, func(t *testing.T) contract.IMessageRepository {
		db := openBadger(t, t.TempDir())
		repository, err := NewMessageRepository(db, slog.Default())
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = repository.Close()
			_ = db.Close()
		})
		return repository
	})
}

func Test_Messages_Survive_Reopen_And_Keep_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	// Given a log written by a first process
	db := openBadger(t, dir)
	repository, err := NewMessageRepository(db, slog.Default())
	req.NoError(err)
	for _, text := range []string{"one", "two", "three"} {
		req.NoError(repository.Append(ctx, domain.Message{ID: uuid.New(), From: "alice", To: domain.Broadcast, Text: text, Type: domain.PublicMessage}))
	}
	req.NoError(repository.Close())
	req.NoError(db.Close())

	// When a second process appends after reopening
	db = openBadger(t, dir)
	defer db.Close()
	repository, err = NewMessageRepository(db, slog.Default())
	req.NoError(err)
	defer repository.Close()
	req.NoError(repository.Append(ctx, domain.Message{ID: uuid.New(), From: "bob", To: domain.Broadcast, Text: "four", Type: domain.PublicMessage}))

	// Then
	messages, err := repository.Find(ctx, contract.MessageFilter{Viewer: "carol"})
	req.NoError(err)
	req.Equal([]string{"one", "two", "three", "four"}, lo.Map(messages, func(m domain.Message, _ int) string { return m.Text }))
	last, err := repository.Find(ctx, contract.MessageFilter{Viewer: "carol", Last: lo.ToPtr(1)})
	req.NoError(err)
	req.Len(last, 1)
	req.Equal("four", last[0].Text)
}
