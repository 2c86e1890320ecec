package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/me/timingbelt/pkg/model"
)

// RecorderConfig holds recorder configuration.
type RecorderConfig struct {
	BufferSize    int           // traces held before Observe starts dropping
	BatchSize     int           // traces written per transaction
	Retention     time.Duration // 0 keeps traces forever
	PruneInterval time.Duration
}

// DefaultRecorderConfig returns sensible defaults.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		BufferSize:    1024,
		BatchSize:     64,
		PruneInterval: time.Minute,
	}
}

// Recorder persists cycle traces from a background goroutine. Observe never
// blocks; when the buffer is full the trace is dropped and counted.
type Recorder struct {
	store  Store
	config RecorderConfig
	logger *slog.Logger
	now    func() time.Time

	traces  chan model.CycleTrace
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped sync.Once

	recorded atomic.Int64
	dropped  atomic.Int64
	failed   atomic.Int64
}

// NewRecorder creates a recorder writing to st.
func NewRecorder(st Store, cfg RecorderConfig, logger *slog.Logger) *Recorder {
	def := DefaultRecorderConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = def.PruneInterval
	}
	return &Recorder{
		store:  st,
		config: cfg,
		logger: logger.With("component", "recorder"),
		now:    time.Now,
		traces: make(chan model.CycleTrace, cfg.BufferSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Observe queues tr for writing. It has the belt.Observer signature.
func (r *Recorder) Observe(tr model.CycleTrace) {
	select {
	case r.traces <- tr:
	default:
		if r.dropped.Add(1) == 1 {
			r.logger.Warn("trace buffer full, dropping traces", "buffer", r.config.BufferSize)
		}
	}
}

// Recorded returns how many traces have been written.
func (r *Recorder) Recorded() int64 { return r.recorded.Load() }

// Dropped returns how many traces were discarded because the buffer was full.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

// Failed returns how many traces could not be written.
func (r *Recorder) Failed() int64 { return r.failed.Load() }

// Start writes queued traces until ctx is cancelled or Stop is called, then
// flushes whatever is still buffered.
func (r *Recorder) Start(ctx context.Context) error {
	defer close(r.doneCh)
	r.logger.Info("recorder started", "buffer", r.config.BufferSize, "retention", r.config.Retention)

	prune := time.NewTicker(r.config.PruneInterval)
	defer prune.Stop()

	batch := make([]model.CycleTrace, 0, r.config.BatchSize)
	for {
		select {
		case <-ctx.Done():
			r.flush(context.Background(), batch)
			return ctx.Err()
		case <-r.stopCh:
			r.flush(context.Background(), batch)
			return nil
		case <-prune.C:
			r.prune(ctx)
		case tr := <-r.traces:
			batch = append(batch[:0], tr)
			batch = r.drain(batch)
			r.write(ctx, batch)
			batch = batch[:0]
		}
	}
}

// Stop ends Start after writing buffered traces, and waits for it.
func (r *Recorder) Stop() {
	r.stopped.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

// drain appends buffered traces to batch without blocking.
func (r *Recorder) drain(batch []model.CycleTrace) []model.CycleTrace {
	for len(batch) < r.config.BatchSize {
		select {
		case tr := <-r.traces:
			batch = append(batch, tr)
		default:
			return batch
		}
	}
	return batch
}

func (r *Recorder) flush(ctx context.Context, batch []model.CycleTrace) {
	for {
		batch = r.drain(batch[:0])
		if len(batch) == 0 {
			return
		}
		r.write(ctx, batch)
	}
}

func (r *Recorder) write(ctx context.Context, batch []model.CycleTrace) {
	if err := r.store.RecordCycles(ctx, batch); err != nil {
		r.failed.Add(int64(len(batch)))
		r.logger.Error("record cycles", "count", len(batch), "error", err)
		return
	}
	r.recorded.Add(int64(len(batch)))
}

func (r *Recorder) prune(ctx context.Context) {
	if r.config.Retention <= 0 {
		return
	}
	n, err := r.store.DeleteCyclesBefore(ctx, r.now().Add(-r.config.Retention))
	if err != nil {
		r.logger.Error("prune cycles", "error", err)
		return
	}
	if n > 0 {
		r.logger.Debug("pruned cycles", "count", n)
	}
}
