//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-presence/domain"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IParticipantRepository stores one liveness record per participant name.
// Every implementation must make InsertIfAbsent a compare-and-insert:
// two concurrent calls with the same name never both return true.
type IParticipantRepository interface {
	InsertIfAbsent(ctx context.Context, participant domain.Participant) (bool, error)
	Touch(ctx context.Context, name string, at time.Time) (bool, error)
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]domain.Participant, error)
	// DeleteIfInactive removes the participant only if its last signal is older than cutoff.
	// Deleting an absent participant is a silent no-op returning false.
	DeleteIfInactive(ctx context.Context, name string, cutoff time.Time) (bool, error)
	Delete(ctx context.Context, name string) error
}

// MessageFilter selects messages readable by Viewer; an empty Viewer selects every message.
// When Last is set only the most recent Last matches are kept, still in log order.
type MessageFilter struct {
	Viewer      string
	IncludeSent bool
	Last        *int
}

func (f MessageFilter) Match(m domain.Message) bool {
	return f.Viewer == "" || m.IsVisibleTo(f.Viewer, f.IncludeSent)
}

// IMessageRepository is an append-only log; Find returns matches in insertion order.
type IMessageRepository interface {
	Append(ctx context.Context, message domain.Message) error
	Find(ctx context.Context, filter MessageFilter) ([]domain.Message, error)
}
