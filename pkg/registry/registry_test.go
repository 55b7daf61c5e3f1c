package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateDiff(t *testing.T) {
	r := New()
	r.Update(NewSnapshot("A", "B", "C"))

	added, removed := r.Update(NewSnapshot("A", "C", "D"))

	assert.Equal(t, []DeviceID{"D"}, added)
	assert.Equal(t, []DeviceID{"B"}, removed)
	assert.Equal(t, []DeviceID{"A", "C", "D"}, r.Read().IDs())
}

func TestUpdateIdempotent(t *testing.T) {
	r := New()
	r.Update(NewSnapshot("A", "B"))

	added, removed := r.Update(NewSnapshot("B", "A"))

	assert.Empty(t, added)
	assert.Empty(t, removed)
}

func TestUpdateFromEmpty(t *testing.T) {
	r := New()

	added, removed := r.Update(NewSnapshot("emulator-5554", "R58M123"))

	assert.Equal(t, []DeviceID{"R58M123", "emulator-5554"}, added)
	assert.Empty(t, removed)
	assert.Equal(t, 2, r.Len())
	assert.True(t, r.Contains("R58M123"))
	assert.False(t, r.Contains("r58m123"), "identifiers compare exactly")
}

func TestUpdateToEmpty(t *testing.T) {
	r := New()
	r.Update(NewSnapshot("A"))

	added, removed := r.Update(NewSnapshot())

	assert.Empty(t, added)
	assert.Equal(t, []DeviceID{"A"}, removed)
	assert.Zero(t, r.Len())
}

func TestSnapshotCollapsesDuplicates(t *testing.T) {
	s := NewSnapshot("A", "A", "B")
	assert.Equal(t, 2, s.Len())

	u := s.Union(NewSnapshot("B", "C"))
	assert.Equal(t, []string{"A", "B", "C"}, u.Strings())
	assert.Equal(t, 2, s.Len(), "Union must not modify the receiver")
}

func TestSnapshotEqual(t *testing.T) {
	assert.True(t, NewSnapshot("A", "B").Equal(NewSnapshot("B", "A")))
	assert.False(t, NewSnapshot("A").Equal(NewSnapshot("A", "B")))
	assert.True(t, Snapshot{}.Equal(NewSnapshot()))
}

func TestConcurrentUpdatesLeaveOneInput(t *testing.T) {
	first := NewSnapshot("A", "B")
	second := NewSnapshot("C")

	for i := 0; i < 100; i++ {
		r := New()
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); r.Update(first) }()
		go func() { defer wg.Done(); r.Update(second) }()
		wg.Wait()

		got := r.Read()
		if !got.Equal(first) && !got.Equal(second) {
			t.Fatalf("registry holds %v, want one of the inputs", got.Strings())
		}
	}
}

func TestConcurrentReadsSeeWholeSnapshots(t *testing.T) {
	r := New()
	a := NewSnapshot("A1", "A2", "A3")
	b := NewSnapshot("B1", "B2")

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				r.Update(a)
				r.Update(b)
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		got := r.Read()
		if got.Len() != 0 && !got.Equal(a) && !got.Equal(b) {
			close(stop)
			t.Fatalf("observed torn snapshot %v", got.Strings())
		}
	}
	close(stop)
	wg.Wait()
}
