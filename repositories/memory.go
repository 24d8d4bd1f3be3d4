package repositories

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryParticipantRepository keeps participants in a map guarded by a mutex.
// Nothing survives a restart; it backs tests and STORE_DRIVER=memory.
type MemoryParticipantRepository struct {
	mu           sync.RWMutex
	participants map[string]domain.Participant
}

func NewMemoryParticipantRepository() *MemoryParticipantRepository {
	return &MemoryParticipantRepository{participants: make(map[string]domain.Participant)}
}

func (r *MemoryParticipantRepository) InsertIfAbsent(_ context.Context, participant domain.Participant) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[participant.Name]; ok {
		return false, nil
	}
	r.participants[participant.Name] = participant
	return true, nil
}

func (r *MemoryParticipantRepository) Touch(_ context.Context, name string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[name]
	if !ok {
		return false, nil
	}
	p.LastSeen = at
	r.participants[name] = p
	return true, nil
}

func (r *MemoryParticipantRepository) Exists(_ context.Context, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.participants[name]
	return ok, nil
}

func (r *MemoryParticipantRepository) List(_ context.Context) ([]domain.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	participants := make([]domain.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		participants = append(participants, p)
	}
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].Name < participants[j].Name
	})
	return participants, nil
}

func (r *MemoryParticipantRepository) DeleteIfInactive(_ context.Context, name string, cutoff time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[name]
	if !ok || !p.LastSeen.Before(cutoff) {
		return false, nil
	}
	delete(r.participants, name)
	return true, nil
}

func (r *MemoryParticipantRepository) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.participants, name)
	return nil
}

// MemoryMessageRepository is an append-only slice.
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages []domain.Message
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{}
}

func (r *MemoryMessageRepository) Append(_ context.Context, message domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

func (r *MemoryMessageRepository) Find(_ context.Context, filter contract.MessageFilter) ([]domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]domain.Message, 0)
	for _, m := range r.messages {
		if filter.Match(m) {
			matches = append(matches, m)
		}
	}
	return LastN(matches, filter.Last), nil
}

// LastN keeps the trailing n elements, or all of them when n is nil.
func LastN[T any](items []T, n *int) []T {
	if n == nil {
		return items
	}
	if *n <= 0 {
		return items[:0]
	}
	if *n >= len(items) {
		return items
	}
	return items[len(items)-*n:]
}
