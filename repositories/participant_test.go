package repositories

import (
	"chat-presence/contract"
	"chat-presence/repositories/repotest"
	"log/slog"
	"testing"
)

func Test_Badger_Participant_Repository(t *testing.T) {
	repotest.RunParticipantRepository(t, func(t *testing.T) contract.IParticipantRepository {
		db := openBadger(t, t.TempDir())
		t.Cleanup(func() { _ = db.Close() })
		return NewParticipantRepository(db, slog.Default())
	})
}
