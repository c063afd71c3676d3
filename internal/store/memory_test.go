package store

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryGetMissing(t *testing.T) {
	m := NewMemory()
	_, _, err := m.Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on missing key: err=%v, want ErrNotFound", err)
	}
}

func TestMemoryPutGetRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	v1, err := m.Put(ctx, "k", []byte("one"), 0)
	if err != nil {
		t.Fatalf("initial Put: %v", err)
	}
	if v1 != 1 {
		t.Fatalf("initial version=%d, want 1", v1)
	}

	value, version, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(value) != "one" || version != 1 {
		t.Fatalf("Get=(%q,%d), want (one,1)", value, version)
	}

	v2, err := m.Put(ctx, "k", []byte("two"), 1)
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if v2 != 2 {
		t.Fatalf("second version=%d, want 2", v2)
	}
}

func TestMemoryStaleWriteRejected(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.Put(ctx, "k", []byte("one"), 0); err != nil {
		t.Fatalf("initial Put: %v", err)
	}

	// Writing with an outdated version must fail and leave the value alone.
	if _, err := m.Put(ctx, "k", []byte("stale"), 0); !errors.Is(err, ErrStaleWrite) {
		t.Fatalf("stale Put: err=%v, want ErrStaleWrite", err)
	}

	value, version, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(value) != "one" || version != 1 {
		t.Fatalf("after stale write Get=(%q,%d), want (one,1)", value, version)
	}
}

func TestMemoryCreateRequiresAbsentKey(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.Put(ctx, "k", []byte("one"), 0); err != nil {
		t.Fatalf("initial Put: %v", err)
	}
	if _, err := m.Put(ctx, "k", []byte("again"), 0); !errors.Is(err, ErrStaleWrite) {
		t.Fatalf("create over existing key: err=%v, want ErrStaleWrite", err)
	}
}
