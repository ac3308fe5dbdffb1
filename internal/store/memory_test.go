package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemory_SetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Set(ctx, "events/e1", map[string]any{"name": "Open Studio", "capacity": 40}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var got struct {
		Name     string `json:"name"`
		Capacity int    `json:"capacity"`
	}
	if err := m.Get(ctx, "events/e1", &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "Open Studio" || got.Capacity != 40 {
		t.Errorf("got %+v", got)
	}

	var name string
	if err := m.Get(ctx, "events/e1/name", &name); err != nil {
		t.Fatalf("Get child failed: %v", err)
	}
	if name != "Open Studio" {
		t.Errorf("name = %q", name)
	}
}

func TestMemory_AbsentPathLeavesValueUntouched(t *testing.T) {
	m := NewMemory()
	v := map[string]any{"keep": true}
	if err := m.Get(context.Background(), "nothing/here", &v); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v["keep"] != true {
		t.Errorf("value was overwritten: %v", v)
	}
}

func TestMemory_ServerTimestampResolvedOnWrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	fixed := time.UnixMilli(1_700_000_000_123)
	m.SetClock(func() time.Time { return fixed })

	if err := m.Set(ctx, "c/1", map[string]any{"timestamp": ServerTimestamp}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	var ts int64
	if err := m.Get(ctx, "c/1/timestamp", &ts); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ts != fixed.UnixMilli() {
		t.Errorf("timestamp = %d, want %d", ts, fixed.UnixMilli())
	}
}

func TestMemory_DeletePrunesEmptyParents(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.Set(ctx, "a/b/c", true)
	if err := m.Delete(ctx, "a/b/c"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	var root map[string]any
	_ = m.Get(ctx, "", &root)
	if len(root) != 0 {
		t.Errorf("root = %v, want empty", root)
	}
}

func TestMemory_PushKeysAreOrdered(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	k1, err := m.Push(ctx, "list", "first")
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	k2, _ := m.Push(ctx, "list", "second")
	if !(k1 < k2) {
		t.Errorf("push keys not ordered: %s >= %s", k1, k2)
	}
}

func TestMemory_GetIfChanged(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.Set(ctx, "x", 1)

	var v int
	changed, etag, err := m.GetIfChanged(ctx, "x", "", &v)
	if err != nil || !changed || v != 1 {
		t.Fatalf("first read: changed=%v v=%d err=%v", changed, v, err)
	}

	changed, etag2, _ := m.GetIfChanged(ctx, "x", etag, &v)
	if changed || etag2 != etag {
		t.Errorf("unchanged node reported as changed")
	}

	_ = m.Set(ctx, "x", 2)
	changed, _, _ = m.GetIfChanged(ctx, "x", etag, &v)
	if !changed || v != 2 {
		t.Errorf("changed=%v v=%d, want true 2", changed, v)
	}
}

func TestMemory_TransactionConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Transaction(ctx, "count", func(n Node) (any, error) {
				var cur int
				if err := n.Unmarshal(&cur); err != nil {
					return nil, err
				}
				return cur + 1, nil
			})
			if err != nil {
				t.Errorf("Transaction failed: %v", err)
			}
		}()
	}
	wg.Wait()

	var got int
	_ = m.Get(ctx, "count", &got)
	if got != workers {
		t.Errorf("count = %d, want %d", got, workers)
	}
}

func TestMemory_TransactionFnErrorPassesThrough(t *testing.T) {
	m := NewMemory()
	boom := errors.New("boom")
	_, err := m.Transaction(context.Background(), "x", func(Node) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if IsTransient(err) {
		t.Error("fn error must not be reported as transient")
	}
}

func TestMemory_TransactionExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.maxRetries = 3

	attempts := 0
	_, err := m.Transaction(ctx, "x", func(n Node) (any, error) {
		attempts++
		// Concurrent writer wins every race.
		_ = m.Set(ctx, "x", attempts)
		return -1, nil
	})
	if !IsTransient(err) || !errors.Is(err, ErrTxnExhausted) {
		t.Fatalf("err = %v, want transient exhausted", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestMemory_FaultIsTransient(t *testing.T) {
	m := NewMemory()
	m.SetFault(func(op, path string) error {
		if op == "set" {
			return errors.New("network down")
		}
		return nil
	})
	err := m.Set(context.Background(), "x", 1)
	if !IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}
}

func TestMemory_QueryEqual(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.Set(ctx, "accounts/u1", map[string]any{"name": "Mira", "role": "artist"})
	_ = m.Set(ctx, "accounts/u2", map[string]any{"name": "Jon", "role": "visitor"})

	var found map[string]struct {
		Role string `json:"role"`
	}
	if err := m.QueryEqual(ctx, "accounts", "name", "Mira", &found); err != nil {
		t.Fatalf("QueryEqual failed: %v", err)
	}
	if len(found) != 1 || found["u1"].Role != "artist" {
		t.Errorf("found = %+v", found)
	}
}

func TestWatch_DeliversInitialAndChangedSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewMemory()
	_ = m.Set(ctx, "inv/e1/a1/status", "pending")

	seen := make(chan map[string]any, 4)
	go func() {
		_ = Watch(ctx, m, "inv", 10*time.Millisecond, func(_ context.Context, snap map[string]any) error {
			seen <- snap
			return nil
		})
	}()

	first := <-seen
	if first["e1"] == nil {
		t.Fatalf("initial snapshot missing e1: %v", first)
	}

	_ = m.Set(ctx, "inv/e1/a1/status", "accepted")
	select {
	case snap := <-seen:
		status := snap["e1"].(map[string]any)["a1"].(map[string]any)["status"]
		if status != "accepted" {
			t.Errorf("status = %v", status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("change not delivered")
	}
}
