package standings

import (
	"context"

	"github.com/google/uuid"
)

// Store persists standing documents keyed by (contest, contestant). The
// journal only ever grows; derived fields are written back conditioned on
// the journal length they were computed from.
type Store interface {
	Get(ctx context.Context, tid, uid uuid.UUID) (Standing, error)
	List(ctx context.Context, tid uuid.UUID) ([]Standing, error)
	// GetMulti skips contests the user has no standing in.
	GetMulti(ctx context.Context, uid uuid.UUID, tids []uuid.UUID) (map[uuid.UUID]Standing, error)

	// Append creates the document (not attended) when absent and returns it
	// as it is after the append.
	Append(ctx context.Context, tid, uid uuid.UUID, entries ...JournalEntry) (Standing, error)
	// SetDerived stores st only if the journal still has journalLen entries.
	SetDerived(ctx context.Context, tid, uid uuid.UUID, journalLen int, st Stat) (bool, error)
	Attend(ctx context.Context, tid, uid uuid.UUID) (Standing, error)
}
