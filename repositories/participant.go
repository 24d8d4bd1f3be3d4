package repositories

import (
	"chat-presence/domain"
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	participantPrefix = "participant:"
	nameStripes       = 64
	conflictBackoff   = time.Millisecond
)

// ParticipantRepository serializes writes to one name behind a striped lock,
// so heartbeats for the same participant queue instead of aborting each other.
// Conflicts can still come from another process on the same directory and are retried.
type ParticipantRepository struct {
	db      *badger.DB
	log     *slog.Logger
	stripes [nameStripes]sync.Mutex
}

func NewParticipantRepository(db *badger.DB, log *slog.Logger) *ParticipantRepository {
	return &ParticipantRepository{db: db, log: log}
}

type diskParticipant struct {
	Name       string `json:"name"`
	LastStatus int64  `json:"last_status"`
}

func participantKey(name string) []byte {
	return []byte(participantPrefix + name)
}

// InsertIfAbsent stores the participant under "participant:{name}" unless the key exists.
// Joins racing on one name are queued by the stripe lock; a late commit that still
// conflicts is retried and then sees the winner's record, reporting false.
func (r *ParticipantRepository) InsertIfAbsent(ctx context.Context, participant domain.Participant) (bool, error) {
	bytes, err := json.Marshal(fromParticipant(participant))
	if err != nil {
		return false, err
	}
	var inserted bool
	err = r.update(ctx, participant.Name, func(txn *badger.Txn) error {
		inserted = false
		key := participantKey(participant.Name)
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		inserted = true
		return txn.Set(key, bytes)
	})
	return inserted, err
}

// Touch refreshes the last signal of an existing participant.
func (r *ParticipantRepository) Touch(ctx context.Context, name string, at time.Time) (bool, error) {
	var found bool
	err := r.update(ctx, name, func(txn *badger.Txn) error {
		found = false
		p, err := getParticipant(txn, name)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		p.LastSeen = at
		bytes, err := json.Marshal(fromParticipant(p))
		if err != nil {
			return err
		}
		return txn.Set(participantKey(name), bytes)
	})
	return found, err
}

func (r *ParticipantRepository) Exists(_ context.Context, name string) (bool, error) {
	var found bool
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(participantKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	return found, err
}

// List scans the participant prefix; keys come back sorted by name.
func (r *ParticipantRepository) List(_ context.Context) ([]domain.Participant, error) {
	var participants []domain.Participant
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(participantPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				p, err := decodeParticipant(val)
				if err != nil {
					return err
				}
				participants = append(participants, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return participants, err
}

// DeleteIfInactive re-reads the record inside the write transaction so that a heartbeat
// committed after the sweep snapshot keeps the participant alive.
func (r *ParticipantRepository) DeleteIfInactive(ctx context.Context, name string, cutoff time.Time) (bool, error) {
	var deleted bool
	err := r.update(ctx, name, func(txn *badger.Txn) error {
		deleted = false
		p, err := getParticipant(txn, name)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !p.LastSeen.Before(cutoff) {
			return nil
		}
		deleted = true
		return txn.Delete(participantKey(name))
	})
	return deleted, err
}

func (r *ParticipantRepository) Delete(ctx context.Context, name string) error {
	return r.update(ctx, name, func(txn *badger.Txn) error {
		return txn.Delete(participantKey(name))
	})
}

// update runs fn in a read-write transaction while holding the stripe of name.
// A conflicting commit is retried with a growing pause until ctx is done.
func (r *ParticipantRepository) update(ctx context.Context, name string, fn func(txn *badger.Txn) error) error {
	stripe := r.stripe(name)
	stripe.Lock()
	defer stripe.Unlock()

	backoff := conflictBackoff
	for attempt := 1; ; attempt++ {
		err := r.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		r.log.Debug("Participant transaction conflict, retrying", "name", name, "attempt", attempt)
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(2*backoff, 50*time.Millisecond)
	}
}

func (r *ParticipantRepository) stripe(name string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return &r.stripes[h.Sum32()%nameStripes]
}

func getParticipant(txn *badger.Txn, name string) (domain.Participant, error) {
	item, err := txn.Get(participantKey(name))
	if err != nil {
		return domain.Participant{}, err
	}
	var p domain.Participant
	err = item.Value(func(val []byte) error {
		p, err = decodeParticipant(val)
		return err
	})
	return p, err
}

func decodeParticipant(val []byte) (domain.Participant, error) {
	var dp diskParticipant
	if err := json.Unmarshal(val, &dp); err != nil {
		return domain.Participant{}, err
	}
	return toParticipant(dp), nil
}

func fromParticipant(p domain.Participant) diskParticipant {
	return diskParticipant{Name: p.Name, LastStatus: p.LastStatus()}
}

func toParticipant(dp diskParticipant) domain.Participant {
	return domain.Participant{Name: dp.Name, LastSeen: time.UnixMilli(dp.LastStatus)}
}
