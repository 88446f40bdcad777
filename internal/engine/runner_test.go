package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"stratlab/types"

	"github.com/google/uuid"
)

// blockingProvider parks every fetch until its context is done.
type blockingProvider struct {
	started chan struct{}
}

func (p *blockingProvider) Fetch(ctx context.Context, _ string, _, _ time.Time, _ types.Interval) ([]types.Candle, error) {
	close(p.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunner_SubmitAndWait(t *testing.T) {
	store := newMemStore()
	provider := &fakeProvider{bars: map[string][]types.Candle{"X": series("X", 100, 110, 120, 130, 150)}}
	r := NewRunner(newTestEngine(provider, store, time.Second))

	id, err := r.Submit(context.Background(), request("", `buy("X", 10, 100, data.X[0].timestamp);`, 100000, "X"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("id %q is not a uuid: %v", id, err)
	}
	if len(store.created) != 1 || store.created[0] != id {
		t.Errorf("record not created synchronously: %v", store.created)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := r.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if res.Status != types.StatusCompleted || res.TotalTrades != 1 {
		t.Errorf("result = %s with %d trades", res.Status, res.TotalTrades)
	}

	if n := len(r.jobs); n != 0 {
		t.Errorf("runner still tracks %d jobs after Wait", n)
	}
	if _, err := r.Wait(ctx, id); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("second Wait err = %v, want ErrInvalidRequest", err)
	}
	if r.Cancel(id) {
		t.Error("Cancel after Wait = true")
	}
}

func TestRunner_Cancel(t *testing.T) {
	store := newMemStore()
	provider := &blockingProvider{started: make(chan struct{})}
	r := NewRunner(newTestEngine(provider, store, time.Second))

	id, err := r.Submit(context.Background(), request("slow", ``, 100, "X"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case <-provider.started:
	case <-time.After(5 * time.Second):
		t.Fatal("fetch never started")
	}
	if !r.Cancel(id) {
		t.Fatal("Cancel reported unknown id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := r.Wait(ctx, id)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if res.Status != types.StatusCancelled {
		t.Errorf("status = %s", res.Status)
	}
	if store.lastStatus(id) != types.StatusCancelled {
		t.Errorf("stored status = %s", store.lastStatus(id))
	}
}

func TestRunner_SubmitErrors(t *testing.T) {
	r := NewRunner(newTestEngine(&fakeProvider{}, newMemStore(), time.Second))

	if _, err := r.Submit(context.Background(), request("dup", ``, 100, "X")); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if _, err := r.Submit(context.Background(), request("dup", ``, 100, "X")); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("duplicate Submit err = %v, want ErrInvalidRequest", err)
	}
	if _, err := r.Submit(context.Background(), request("neg", ``, -5, "X")); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("invalid Submit err = %v, want ErrInvalidRequest", err)
	}
	if _, err := r.Wait(context.Background(), "neg"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("rejected submission should not be tracked, got %v", err)
	}
	if r.Cancel("unknown") {
		t.Error("Cancel(unknown) = true")
	}
}
