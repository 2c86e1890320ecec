package belt

import (
	"testing"
	"time"
)

func TestBudget_BeforeStart(t *testing.T) {
	b := NewBudget(newFakeClock(), 15*time.Millisecond)
	if b.Started() {
		t.Error("Started() = true before Start")
	}
	if got := b.Elapsed(); got != 0 {
		t.Errorf("Elapsed() = %v, want 0", got)
	}
	if got := b.Remaining(); got != 15*time.Millisecond {
		t.Errorf("Remaining() = %v, want 15ms", got)
	}
	if b.HasElapsed() {
		t.Error("HasElapsed() = true before Start")
	}
}

func TestBudget_ElapsedAndRemaining(t *testing.T) {
	clock := newFakeClock()
	b := NewBudget(clock, 15*time.Millisecond)
	b.Start()
	if !b.StartedAt().Equal(clock.Now()) {
		t.Errorf("StartedAt() = %v, want %v", b.StartedAt(), clock.Now())
	}

	tests := []struct {
		advance   time.Duration
		remaining time.Duration
		elapsed   bool
	}{
		{10 * time.Millisecond, 5 * time.Millisecond, false},
		{5 * time.Millisecond, 0, true},
		{5 * time.Millisecond, -5 * time.Millisecond, true},
	}
	for _, tt := range tests {
		clock.Advance(tt.advance)
		if got := b.Remaining(); got != tt.remaining {
			t.Errorf("Remaining() = %v, want %v", got, tt.remaining)
		}
		if got := b.HasElapsed(); got != tt.elapsed {
			t.Errorf("HasElapsed() at remaining %v = %v, want %v", tt.remaining, got, tt.elapsed)
		}
	}
}

func TestBudget_RestartAndSetInterval(t *testing.T) {
	clock := newFakeClock()
	b := NewBudget(clock, 15*time.Millisecond)
	b.Start()
	clock.Advance(20 * time.Millisecond)
	if !b.HasElapsed() {
		t.Fatal("expected budget to be exhausted")
	}
	b.Start()
	if b.HasElapsed() {
		t.Error("restarted budget should not be exhausted")
	}
	b.SetInterval(30 * time.Millisecond)
	clock.Advance(20 * time.Millisecond)
	if got := b.Remaining(); got != 10*time.Millisecond {
		t.Errorf("Remaining() = %v, want 10ms", got)
	}
}
