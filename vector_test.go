package arbor

import (
	"math"
	"testing"
)

func TestVectorScan(t *testing.T) {
	var v Vector
	if err := v.Scan("[0.1,0.2,0.3]"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v) != 3 || v[1] != 0.2 {
		t.Errorf("unexpected vector: %v", v)
	}

	if err := v.Scan([]byte("[1,2]")); err != nil {
		t.Fatalf("unexpected error scanning bytes: %v", err)
	}
	if len(v) != 2 || v[0] != 1 {
		t.Errorf("unexpected vector: %v", v)
	}

	if err := v.Scan(nil); err != nil {
		t.Fatalf("unexpected error scanning nil: %v", err)
	}
	if v != nil {
		t.Errorf("nil source must produce nil vector, got %v", v)
	}

	if err := v.Scan(42); err == nil {
		t.Error("expected error scanning unsupported type")
	}
	if err := v.Scan("[not,a,number]"); err == nil {
		t.Error("expected error for malformed element")
	}
}

func TestVectorValue(t *testing.T) {
	v := Vector{0.5, 1, 2.25}
	val, err := v.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "[0.5,1,2.25]" {
		t.Errorf("unexpected value: %v", val)
	}

	var nilVec Vector
	val, err = nilVec.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != nil {
		t.Errorf("nil vector must produce nil value, got %v", val)
	}
}

func TestVectorCosine(t *testing.T) {
	a := Vector{1, 0}
	b := Vector{0, 1}
	c := Vector{1, 0}

	if got := a.Cosine(b); got != 0 {
		t.Errorf("orthogonal vectors: expected 0, got %f", got)
	}
	if got := a.Cosine(c); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors: expected 1, got %f", got)
	}
	if got := a.Cosine(Vector{1, 0, 0}); got != 0 {
		t.Errorf("dimension mismatch must yield 0, got %f", got)
	}
	if got := a.Cosine(Vector{0, 0}); got != 0 {
		t.Errorf("zero vector must yield 0, got %f", got)
	}
}
