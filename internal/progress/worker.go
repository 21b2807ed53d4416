package progress

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// ReconcileArgs asks for a full progress recomputation for one user. The job
// is inserted with InsertTx inside a settlement transaction, so it is
// delivered at-least-once after commit; RecomputeAll is idempotent, so
// duplicate deliveries are harmless.
type ReconcileArgs struct {
	UserID uuid.UUID `json:"user_id"`
}

func (ReconcileArgs) Kind() string { return "reconcile_progress" }

// Reconciler is the contract the worker needs.
type Reconciler interface {
	RecomputeAll(ctx context.Context, userID uuid.UUID) error
}

type ReconcileWorker struct {
	river.WorkerDefaults[ReconcileArgs]
	svc Reconciler
}

func NewReconcileWorker(svc Reconciler) *ReconcileWorker {
	return &ReconcileWorker{svc: svc}
}

func (w *ReconcileWorker) Work(ctx context.Context, job *river.Job[ReconcileArgs]) error {
	if err := w.svc.RecomputeAll(ctx, job.Args.UserID); err != nil {
		return fmt.Errorf("recompute progress for %s: %w", job.Args.UserID, err)
	}
	return nil
}
