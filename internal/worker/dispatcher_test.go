package worker

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestJobsOfOneVisitorRunInOrder(t *testing.T) {
	d := NewDispatcher(2, 4, 16, time.Minute)

	var (
		mu   sync.Mutex
		seen []int
	)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		d.Submit(Job{UserID: "u1", Run: func() {
			defer wg.Done()
			time.Sleep(time.Millisecond)
			mu.Lock()
			seen = append(seen, i)
			mu.Unlock()
		}})
	}
	wg.Wait()

	for i, got := range seen {
		if got != i {
			t.Fatalf("jobs reordered: %v", seen)
		}
	}
}

func TestOneJobInFlightPerVisitor(t *testing.T) {
	d := NewDispatcher(4, 8, 16, time.Minute)

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		d.Submit(Job{UserID: "solo", Run: func() {
			defer wg.Done()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}})
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("concurrent jobs for one visitor: %d", maxSeen)
	}
}

func TestVisitorsRunConcurrently(t *testing.T) {
	d := NewDispatcher(4, 8, 32, time.Minute)

	start := make(chan struct{})
	var (
		mu      sync.Mutex
		running int
		peak    int
	)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		d.Submit(Job{UserID: fmt.Sprintf("u%d", i), Run: func() {
			defer wg.Done()
			<-start
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			running--
			mu.Unlock()
		}})
	}
	// Give the dispatcher time to hand all four jobs to workers.
	time.Sleep(20 * time.Millisecond)
	close(start)
	wg.Wait()

	if peak < 2 {
		t.Fatalf("expected parallelism across visitors, peak = %d", peak)
	}
}

func TestCancelUserDropsPendingJobs(t *testing.T) {
	d := NewDispatcher(2, 2, 16, time.Minute)

	block := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	d.Submit(Job{UserID: "victim", Run: func() {
		defer wg.Done()
		close(started)
		<-block
	}})
	<-started

	// These queue up behind the running job because only one job per visitor
	// is in flight at a time.
	ran := make(chan struct{}, 4)
	for i := 0; i < 3; i++ {
		d.Submit(Job{UserID: "victim", Run: func() {
			ran <- struct{}{}
		}})
	}
	time.Sleep(10 * time.Millisecond)
	d.CancelUser("victim")
	close(block)
	wg.Wait()

	select {
	case <-ran:
		t.Fatal("cancelled job still ran")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestZeroValuedBoundsStillDispatch(t *testing.T) {
	// A config that leaves the worker sizing unset must not stall the queue.
	d := NewDispatcher(0, 0, 0, 0)

	done := make(chan struct{})
	d.Submit(Job{UserID: "u1", Run: func() { close(done) }})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran with unset worker bounds")
	}
}

func TestPoolGrowsAndSettles(t *testing.T) {
	d := NewDispatcher(1, 4, 32, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		d.Submit(Job{UserID: fmt.Sprintf("u%d", i%6), Run: func() {
			defer wg.Done()
			time.Sleep(time.Millisecond)
		}})
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not drain")
	}
}
