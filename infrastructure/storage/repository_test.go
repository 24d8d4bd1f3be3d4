package storage

import (
	"chat-presence/contract"
	"chat-presence/repositories/repotest"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseSQLite(db) })
	return db
}

func Test_SQLite_Participant_Repository(t *testing.T) {
	repotest.RunParticipantRepository(t, func(t *testing.T) contract.IParticipantRepository {
		return NewParticipantRepository(setupTestDB(t))
	})
}

func Test_SQLite_Message_Repository(t *testing.T) {
	repotest.RunMessageRepository(t, func(t *testing.T) contract.IMessageRepository {
		return NewMessageRepository(setupTestDB(t))
	})
}
