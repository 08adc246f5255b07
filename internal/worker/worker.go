// Package worker runs chat jobs on an elastic goroutine pool. Jobs carry the
// visitor id so the dispatcher can keep each visitor's work in order while
// staying fair across visitors.
package worker

// Job is one unit of work bound to a visitor.
type Job struct {
	UserID string
	Run    func()

	stop bool
}

type poolWorker struct {
	pool       *jobChannelPool
	jobChannel chan Job
}

func newPoolWorker(pool *jobChannelPool) *poolWorker {
	return &poolWorker{
		pool:       pool,
		jobChannel: make(chan Job),
	}
}

func (w *poolWorker) start() {
	go func() {
		for job := range w.jobChannel {
			if job.stop {
				w.pool.retire(w.jobChannel)
				return
			}
			if job.Run != nil {
				job.Run()
			}
			w.pool.Release(w.jobChannel)
		}
	}()
}
