package internal

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestDefaultMapper(t *testing.T) {
	req := require.New(t)

	participant := DefaultMapper("participant:alice", []byte(`{"name":"alice","last_status":0}`))
	req.Equal("PARTICIPANT", participant.Type)
	req.Equal("alice", participant.Entity)

	message := DefaultMapper("message:00000000000000000042",
		[]byte(`{"from":"alice","to":"Todos","text":"hi","type":"message","time":"12:00:00"}`))
	req.Equal("MESSAGE", message.Type)
	req.Equal("42", message.Entity)
	req.Equal("12:00:00", message.Time)
	req.Contains(message.Detail, "hi")

	raw := DefaultMapper("seq:message", []byte{0, 1})
	req.Equal("RAW", raw.Type)
}

func TestDebugServer_Inspect(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()
	req.NoError(db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("participant:alice"), []byte(`{"name":"alice","last_status":0}`))
	}))

	srv := NewDebugServer(db, 0, "/inspect", nil, func() map[string]any {
		return map[string]any{"sweeps": 3}
	}, slog.Default())

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inspect", nil))

	req.Equal(http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	req.NoError(err)
	req.Contains(string(body), "participant:alice")
	req.Contains(string(body), "sweeps: 3")
}
