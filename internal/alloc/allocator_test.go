package alloc

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/fieldgrid/fieldgrid/internal/store"
)

func seedCounter(t *testing.T, s store.Store, key, qual []byte) {
	t.Helper()
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(CounterSeed))
	if err := s.Put(context.Background(), store.TableSites, key, store.Column{Qualifier: qual, Value: buf}); err != nil {
		t.Fatalf("seed counter: %v", err)
	}
}

func TestAllocator_OrdinalsDecrease(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()

	key := []byte{0x00, 0x01}
	qual := []byte("zonectr")
	seedCounter(t, s, key, qual)

	a := New(s, store.TableSites)
	ctx := context.Background()

	first, err := a.NextOrdinal(ctx, key, qual)
	if err != nil {
		t.Fatalf("first allocation: %v", err)
	}
	second, err := a.NextOrdinal(ctx, key, qual)
	if err != nil {
		t.Fatalf("second allocation: %v", err)
	}

	if first != uint64(CounterSeed-1) {
		t.Errorf("first ordinal = %d, want %d", first, CounterSeed-1)
	}
	if second >= first {
		t.Errorf("ordinals must decrease: first %d, second %d", first, second)
	}
}

func TestAllocator_ConcurrentDistinctValues(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()

	key := []byte{0x00, 0x02}
	qual := []byte("assnctr")
	seedCounter(t, s, key, qual)

	a := New(s, store.TableSites)
	const n = 64

	var wg sync.WaitGroup
	values := make(chan uint64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := a.NextOrdinal(context.Background(), key, qual)
			if err != nil {
				t.Errorf("allocation failed: %v", err)
				return
			}
			values <- v
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[uint64]bool)
	for v := range values {
		if seen[v] {
			t.Fatalf("duplicate ordinal %d", v)
		}
		seen[v] = true
	}
	if len(seen) != n {
		t.Errorf("got %d distinct ordinals, want %d", len(seen), n)
	}
}

func TestAllocator_UnseededCounterStillAllocates(t *testing.T) {
	// Counters are independent of parent-entity existence: incrementing a
	// row never written before starts from zero. This looseness is part of
	// the contract, not a bug to paper over.
	s := store.NewMemoryStore()
	defer s.Close()

	a := New(s, store.TableSites)
	v, err := a.Next(context.Background(), []byte{0xFF, 0xFF}, []byte("zonectr"), -1)
	if err != nil {
		t.Fatalf("allocation failed: %v", err)
	}
	if v != -1 {
		t.Errorf("unseeded counter moved to %d, want -1", v)
	}
}
