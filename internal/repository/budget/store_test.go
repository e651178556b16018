package budget

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/kailas-cloud/docuquery/internal/db"
)

type fakeCounters struct {
	values  map[string]int64
	raw     map[string][]byte
	ttls    map[string]time.Duration
	incrErr error
	getErr  error
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{values: map[string]int64{}, raw: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCounters) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if b, ok := f.raw[key]; ok {
		return b, nil
	}
	v, ok := f.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return []byte(strconv.FormatInt(v, 10)), nil
}

// IncrBy mimics INCRBY plus EXPIRE NX: only the first ttl sticks.
func (f *fakeCounters) IncrBy(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.values[key] += delta
	if _, ok := f.ttls[key]; !ok {
		f.ttls[key] = ttl
	}
	return f.values[key], nil
}

func TestIncrByThenGet(t *testing.T) {
	kv := newFakeCounters()
	s := New(kv, time.Hour, 2*time.Hour)
	ctx := context.Background()
	key := "docuquery:budget:openai:daily:2025-03-14"

	if err := s.IncrBy(ctx, key, 120); err != nil {
		t.Fatalf("IncrBy: %v", err)
	}
	if err := s.IncrBy(ctx, key, 30); err != nil {
		t.Fatalf("IncrBy: %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 150 {
		t.Errorf("Get = %d, want 150", got)
	}
}

func TestIncrBy_ExpiryByWindow(t *testing.T) {
	kv := newFakeCounters()
	s := New(kv, time.Hour, 2*time.Hour)
	ctx := context.Background()

	daily := "docuquery:budget:openai:daily:2025-03-14"
	monthly := "docuquery:budget:openai:monthly:2025-03"
	_ = s.IncrBy(ctx, daily, 1)
	_ = s.IncrBy(ctx, monthly, 1)

	if kv.ttls[daily] != time.Hour {
		t.Errorf("daily ttl = %v, want 1h", kv.ttls[daily])
	}
	if kv.ttls[monthly] != 2*time.Hour {
		t.Errorf("monthly ttl = %v, want 2h", kv.ttls[monthly])
	}
}

func TestNew_DefaultTTLs(t *testing.T) {
	kv := newFakeCounters()
	s := New(kv, 0, 0)

	key := "docuquery:budget:openai:daily:2025-03-14"
	_ = s.IncrBy(context.Background(), key, 1)

	if kv.ttls[key] != DefaultDailyTTL {
		t.Errorf("ttl = %v, want %v", kv.ttls[key], DefaultDailyTTL)
	}
}

func TestGet_Missing(t *testing.T) {
	s := New(newFakeCounters(), 0, 0)

	got, err := s.Get(context.Background(), "docuquery:budget:openai:daily:2000-01-01")
	if err != nil || got != 0 {
		t.Fatalf("Get = %d, %v; want 0, nil", got, err)
	}
}

func TestGet_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeCounters)
	}{
		{"store failure", func(f *fakeCounters) { f.getErr = errors.New("timeout") }},
		{"not a number", func(f *fakeCounters) { f.raw["k"] = []byte("abc") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := newFakeCounters()
			tt.setup(kv)
			if _, err := New(kv, 0, 0).Get(context.Background(), "k"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestIncrBy_StoreFailure(t *testing.T) {
	kv := newFakeCounters()
	kv.incrErr = errors.New("READONLY")

	err := New(kv, 0, 0).IncrBy(context.Background(), "k", 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := kv.ttls["k"]; ok {
		t.Error("ttl armed after failed increment")
	}
}
