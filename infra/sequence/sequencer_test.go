package sequence

import (
	"sync"
	"testing"
)

func TestNextIsMonotone(t *testing.T) {
	s := New(0)
	for want := uint64(1); want <= 5; want++ {
		if got := s.Next(); got != want {
			t.Fatalf("Next() = %d, want %d", got, want)
		}
	}
	if s.Current() != 5 {
		t.Errorf("Current() = %d, want 5", s.Current())
	}
}

func TestRestoreContinuesAfterLastHeight(t *testing.T) {
	s := New(41)
	if got := s.Next(); got != 42 {
		t.Errorf("Next() after restore = %d, want 42", got)
	}
	s.Reset(100)
	if got := s.Next(); got != 101 {
		t.Errorf("Next() after reset = %d, want 101", got)
	}
}

func TestConcurrentNextNeverRepeats(t *testing.T) {
	s := New(0)
	const workers, per = 8, 1000

	seen := make([]uint64, workers*per)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < per; i++ {
				seen[w*per+i] = s.Next()
			}
		}(w)
	}
	wg.Wait()

	unique := make(map[uint64]struct{}, len(seen))
	for _, v := range seen {
		if _, dup := unique[v]; dup {
			t.Fatalf("sequence %d issued twice", v)
		}
		unique[v] = struct{}{}
	}
	if s.Current() != workers*per {
		t.Errorf("Current() = %d, want %d", s.Current(), workers*per)
	}
}
