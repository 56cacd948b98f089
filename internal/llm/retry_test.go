package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDelayGrowth(t *testing.T) {
	base := 2000 * time.Millisecond
	want := []time.Duration{2000 * time.Millisecond, 4000 * time.Millisecond, 8000 * time.Millisecond}
	for attempt, w := range want {
		if got := Delay(attempt, base); got != w {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, w)
		}
	}
}

// fakeSleeper records requested delays without waiting.
func fakeSleeper(slept *[]time.Duration) Sleeper {
	return func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
}

func TestDoSucceedsAfterTransient(t *testing.T) {
	r := NewRetrier(2*time.Second, 3, nil)
	var slept []time.Duration
	r.sleep = fakeSleeper(&slept)

	calls := 0
	contacts, err := r.Do(context.Background(), func(context.Context) ([]RawContact, error) {
		calls++
		if calls < 3 {
			return nil, fmt.Errorf("wrapped: %w", ErrRateLimited)
		}
		return []RawContact{{Name: "John Smith"}}, nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("got %d contacts, want 1", len(contacts))
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("slept %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestDoExhaustionReturnsEmptyList(t *testing.T) {
	r := NewRetrier(2*time.Second, 3, nil)
	var slept []time.Duration
	r.sleep = fakeSleeper(&slept)

	calls := 0
	contacts, err := r.Do(context.Background(), func(context.Context) ([]RawContact, error) {
		calls++
		return nil, ErrRateLimited
	})
	if err != nil {
		t.Fatalf("Do() error = %v, want nil past the retry boundary", err)
	}
	if contacts == nil || len(contacts) != 0 {
		t.Fatalf("got %v, want empty non-nil list", contacts)
	}
	// 3 fast retries then the long rate-limit cooldown before the last call
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 60 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("slept %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, slept[i], want[i])
		}
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestDoOverloadFinalWait(t *testing.T) {
	r := NewRetrier(2*time.Second, 2, nil)
	var slept []time.Duration
	r.sleep = fakeSleeper(&slept)

	_, err := r.Do(context.Background(), func(context.Context) ([]RawContact, error) {
		return nil, ErrOverloaded
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if last := slept[len(slept)-1]; last != 30*time.Second {
		t.Errorf("final wait = %v, want 30s for overload", last)
	}
}

func TestDoFatalAbortsImmediately(t *testing.T) {
	r := NewRetrier(2*time.Second, 3, nil)
	var slept []time.Duration
	r.sleep = fakeSleeper(&slept)

	fatal := errors.New("invalid request")
	calls := 0
	_, err := r.Do(context.Background(), func(context.Context) ([]RawContact, error) {
		calls++
		return nil, fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("Do() error = %v, want %v", err, fatal)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(slept) != 0 {
		t.Errorf("slept %v, want no sleeps on fatal", slept)
	}
}

func TestDoPageLimitNotRetried(t *testing.T) {
	r := NewRetrier(2*time.Second, 3, nil)
	var slept []time.Duration
	r.sleep = fakeSleeper(&slept)

	calls := 0
	_, err := r.Do(context.Background(), func(context.Context) ([]RawContact, error) {
		calls++
		return nil, &PageLimitError{MaxPages: 100}
	})
	var pl *PageLimitError
	if !errors.As(err, &pl) || pl.MaxPages != 100 {
		t.Fatalf("Do() error = %v, want PageLimitError{100}", err)
	}
	if calls != 1 || len(slept) != 0 {
		t.Errorf("calls = %d slept = %v, want a single un-retried call", calls, slept)
	}
}
