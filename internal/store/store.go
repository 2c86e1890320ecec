package store

import (
	"context"
	"time"

	"github.com/me/timingbelt/pkg/model"
)

// Store defines the persistence layer for cycle traces.
type Store interface {
	// Cycle traces
	RecordCycle(ctx context.Context, tr *model.CycleTrace) error
	RecordCycles(ctx context.Context, trs []model.CycleTrace) error
	GetCycle(ctx context.Context, id string) (*model.CycleTrace, error)
	ListCycles(ctx context.Context, opts model.ListOptions) ([]*model.CycleTrace, int, error)
	DeleteCyclesBefore(ctx context.Context, before time.Time) (int64, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
