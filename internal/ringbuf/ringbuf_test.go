package ringbuf

import (
	"reflect"
	"testing"
)

func TestRing_BasicPush(t *testing.T) {
	r := New[float64](4)

	r.Push(1.5)
	r.Push(2.5)

	if r.Len() != 2 {
		t.Fatalf("expected len=2, got %d", r.Len())
	}
	if got := r.Values(); !reflect.DeepEqual(got, []float64{1.5, 2.5}) {
		t.Fatalf("expected [1.5 2.5], got %v", got)
	}
	last, ok := r.Last()
	if !ok || last != 2.5 {
		t.Fatalf("expected last=2.5, got %v ok=%v", last, ok)
	}
}

func TestRing_EmptyLast(t *testing.T) {
	r := New[int](3)
	if _, ok := r.Last(); ok {
		t.Fatal("Last on empty ring should return false")
	}
	if len(r.Values()) != 0 {
		t.Fatal("expected no values")
	}
}

func TestRing_Overflow(t *testing.T) {
	r := New[int](2)

	r.Push(1)
	r.Push(2)

	// Buffer is full, oldest is dropped
	if !r.Push(3) {
		t.Fatal("push to full buffer should report eviction")
	}
	if r.Evicted() != 1 {
		t.Fatalf("expected evicted=1, got %d", r.Evicted())
	}
	if got := r.Values(); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Fatalf("expected [2 3], got %v", got)
	}
}

func TestRing_Wraparound(t *testing.T) {
	r := New[int](4)

	for i := 0; i < 23; i++ {
		r.Push(i)
	}
	if r.Len() != 4 {
		t.Fatalf("expected len=4, got %d", r.Len())
	}
	if got := r.Values(); !reflect.DeepEqual(got, []int{19, 20, 21, 22}) {
		t.Fatalf("expected trailing window, got %v", got)
	}
	if r.Evicted() != 19 {
		t.Fatalf("expected evicted=19, got %d", r.Evicted())
	}
}

func TestRing_MinCapacity(t *testing.T) {
	r := New[int](0)
	if r.Cap() != 1 {
		t.Fatalf("expected cap=1, got %d", r.Cap())
	}
	r.Push(7)
	r.Push(8)
	if got := r.Values(); !reflect.DeepEqual(got, []int{8}) {
		t.Fatalf("expected [8], got %v", got)
	}
}

func TestRing_FromValues(t *testing.T) {
	r := FromValues(3, []float64{1, 2, 3, 4, 5})
	if got := r.Values(); !reflect.DeepEqual(got, []float64{3, 4, 5}) {
		t.Fatalf("expected [3 4 5], got %v", got)
	}
}

func TestRing_CloneIsIndependent(t *testing.T) {
	r := FromValues(3, []int{1, 2})
	cp := r.Clone()
	cp.Push(9)
	cp.Push(10)

	if got := r.Values(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("original mutated by clone push: %v", got)
	}
	if got := cp.Values(); !reflect.DeepEqual(got, []int{2, 9, 10}) {
		t.Fatalf("unexpected clone values: %v", got)
	}

	var nilRing *Ring[int]
	if nilRing.Clone() != nil {
		t.Fatal("clone of nil ring should be nil")
	}
}
