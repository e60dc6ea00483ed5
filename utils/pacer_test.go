package utils

import (
	"testing"
	"time"
)

func TestPacerDelayWithinBounds(t *testing.T) {
	p := NewPacer(100*time.Millisecond, 300*time.Millisecond)

	for i := 0; i < 50; i++ {
		d := p.Delay()
		if d < 100*time.Millisecond || d > 300*time.Millisecond {
			t.Fatalf("delay %v outside [100ms, 300ms]", d)
		}
	}
}

func TestPacerSwappedBounds(t *testing.T) {
	p := NewPacer(300*time.Millisecond, 100*time.Millisecond)
	d := p.Delay()
	if d < 100*time.Millisecond || d > 300*time.Millisecond {
		t.Fatalf("delay %v outside corrected bounds", d)
	}
}

func TestPacerZeroIsNoop(t *testing.T) {
	p := NewPacer(0, 0)
	if d := p.Delay(); d != 0 {
		t.Fatalf("expected zero delay, got %v", d)
	}
}

func TestLinkSetNoDuplicates(t *testing.T) {
	s := NewLinkSet()

	if !s.Add("https://www.google.com/maps/place/a") {
		t.Error("first Add should return true")
	}
	if s.Add("https://www.google.com/maps/place/a") {
		t.Error("second Add of same link should return false")
	}
	if s.Size() != 1 {
		t.Errorf("size: got %d, want 1", s.Size())
	}
	if !s.Contains("https://www.google.com/maps/place/a") {
		t.Error("Contains should report the added link")
	}
}

func TestLinkSetConcurrentAdd(t *testing.T) {
	s := NewLinkSet()
	results := make(chan bool, 100)

	for i := 0; i < 100; i++ {
		go func() { results <- s.Add("https://www.google.com/maps/place/same") }()
	}

	added := 0
	for i := 0; i < 100; i++ {
		if <-results {
			added++
		}
	}
	if added != 1 {
		t.Errorf("expected exactly 1 successful add, got %d", added)
	}
}
