package assessment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/skylearn/assess-backend/internal/model"
)

// ErrNoSnapshot is returned by SessionStore.Get when no checkpoint exists
// for the (test, student) pair.
var ErrNoSnapshot = errors.New("no session snapshot")

// SessionStore persists in-progress attempt checkpoints keyed by
// (test, student). The attempt core never touches storage directly;
// implementations live in the service layer (Redis + queued Postgres)
// and in-memory fakes back the tests.
type SessionStore interface {
	Get(ctx context.Context, testID uuid.UUID, studentID int) (*model.SessionSnapshot, error)
	Upsert(ctx context.Context, snap *model.SessionSnapshot) error
	Delete(ctx context.Context, testID uuid.UUID, studentID int) error
}

// ResultStore persists completed-attempt summaries.
type ResultStore interface {
	Insert(ctx context.Context, res *model.Result) error
}
