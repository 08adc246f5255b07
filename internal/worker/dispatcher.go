package worker

import (
	"container/list"
	"sync"
	"time"
)

type userQueue struct {
	jobs     []Job
	enqueued bool // visitor is in the ready queue
	active   bool // a job of this visitor is running
}

// Dispatcher feeds jobs to the pool one visitor at a time. At most one job per
// visitor is in flight and jobs of the same visitor run in submission order;
// visitors take turns through an LRU queue so a chatty one cannot starve the
// rest.
type Dispatcher struct {
	pool     *jobChannelPool
	JobQueue chan Job
	wake     chan struct{}

	mu        sync.Mutex
	queues    map[string]*userQueue
	ready     *list.List // LRU queue storing visitor ids
	positions map[string]*list.Element
}

// NewDispatcher builds and starts a dispatcher over an elastic pool. Zero or
// negative bounds fall back to a single worker so an unconfigured pool still
// dispatches.
func NewDispatcher(minWorkers, maxWorkers, queueSize int, idleTimeout time.Duration) *Dispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if minWorkers < 0 {
		minWorkers = 0
	}
	if minWorkers > maxWorkers {
		minWorkers = maxWorkers
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	d := &Dispatcher{
		pool:      newJobChannelPool(minWorkers, maxWorkers, idleTimeout),
		JobQueue:  make(chan Job, queueSize),
		wake:      make(chan struct{}, 1),
		queues:    make(map[string]*userQueue),
		ready:     list.New(),
		positions: make(map[string]*list.Element),
	}

	for i := 0; i < minWorkers; i++ {
		d.pool.spawnWorker()
	}

	go d.run()
	return d
}

// Submit queues one job. It blocks when the intake queue is full.
func (d *Dispatcher) Submit(job Job) {
	d.JobQueue <- job
}

func (d *Dispatcher) run() {
	for {
		if d.dispatchOne() {
			select {
			case job := <-d.JobQueue:
				d.enqueueJob(job)
			default:
			}
			continue
		}
		// nothing dispatchable, wait for new work or a finished job
		select {
		case job := <-d.JobQueue:
			d.enqueueJob(job)
		case <-d.wake:
		}
	}
}

// CancelUser drops all pending jobs of one visitor. A running job finishes.
func (d *Dispatcher) CancelUser(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if q, ok := d.queues[userID]; ok && q.active {
		// keep the record so jobDone can clean it up
		q.jobs = nil
		q.enqueued = false
	} else {
		delete(d.queues, userID)
	}
	if elem, ok := d.positions[userID]; ok {
		d.ready.Remove(elem)
		delete(d.positions, userID)
	}
}

func (d *Dispatcher) enqueueJob(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := d.queues[job.UserID]
	if q == nil {
		q = &userQueue{}
		d.queues[job.UserID] = q
	}
	q.jobs = append(q.jobs, job)
	if q.enqueued || q.active {
		return
	}
	q.enqueued = true
	d.positions[job.UserID] = d.ready.PushBack(job.UserID)
}

// dispatchOne takes the front visitor's next job and hands it to a worker. The
// visitor leaves the ready queue until the job reports done.
func (d *Dispatcher) dispatchOne() bool {
	d.mu.Lock()
	elem := d.ready.Front()
	if elem == nil {
		d.mu.Unlock()
		return false
	}

	userID := elem.Value.(string)
	q := d.queues[userID]
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	q.active = true
	q.enqueued = false
	d.ready.Remove(elem)
	delete(d.positions, userID)
	d.mu.Unlock()

	run := job.Run
	job.Run = func() {
		if run != nil {
			run()
		}
		d.jobDone(userID)
	}
	d.pool.acquire() <- job
	return true
}

// jobDone re-enqueues the visitor when more jobs are waiting.
func (d *Dispatcher) jobDone(userID string) {
	d.mu.Lock()
	q := d.queues[userID]
	if q != nil {
		q.active = false
		if len(q.jobs) == 0 {
			delete(d.queues, userID)
		} else if !q.enqueued {
			q.enqueued = true
			d.positions[userID] = d.ready.PushBack(userID)
		}
	}
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}
