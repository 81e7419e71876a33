package runtime

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

type worker struct {
	name   string
	run    func(context.Context) error
	closeF func() error
}

// Supervisor runs a set of named workers, each a blocking run function, and
// closes them in reverse registration order when the context is cancelled.
type Supervisor struct {
	mu      sync.Mutex
	workers []worker
	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

// Add registers a worker. closeF may be nil. Workers added after Run has
// started are not run.
func (s *Supervisor) Add(name string, run func(context.Context) error, closeF func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, worker{name: name, run: run, closeF: closeF})
}

// Run starts every registered worker, blocks until ctx is cancelled, then
// closes workers in reverse order and waits for all run functions to return.
// The first worker error wins; close errors are ignored.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	workers := make([]worker, len(s.workers))
	copy(workers, s.workers)
	s.mu.Unlock()

	for _, w := range workers {
		w := w
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			log.WithField("worker", w.name).Debug("Worker started")
			if err := w.run(ctx); err != nil {
				log.WithField("worker", w.name).WithError(err).Error("Worker failed")
				s.errOnce.Do(func() { s.err = err })
				return
			}
			log.WithField("worker", w.name).Debug("Worker exited")
		}()
	}

	<-ctx.Done()

	for i := len(workers) - 1; i >= 0; i-- {
		if workers[i].closeF != nil {
			_ = workers[i].closeF()
		}
	}
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
