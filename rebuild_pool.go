package localping

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// RebuildPool runs cache rebuild tasks on a bounded set of workers. A fixed
// core of workers drains a bounded queue; when the queue is full, overflow
// workers are spawned up to a cap, and past the cap Submit rejects with
// ErrPoolSaturated. Rejection is deliberate: during a rebuild storm the
// cache still serves stale data, so dropping a rebuild only delays freshness
// until the next reader tries again.
type RebuildPool struct {
	tasks chan func()

	mu       sync.Mutex
	core     int
	max      int
	overflow int
	closed   bool

	wg sync.WaitGroup
}

func NewRebuildPool(coreWorkers, maxWorkers, queueSize int) *RebuildPool {
	if coreWorkers < 1 {
		coreWorkers = 1
	}
	if maxWorkers < coreWorkers {
		maxWorkers = coreWorkers
	}
	p := &RebuildPool{
		tasks: make(chan func(), queueSize),
		core:  coreWorkers,
		max:   maxWorkers,
	}
	for i := 0; i < coreWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues a task, spawning an overflow worker when the queue is
// full. It never blocks.
func (p *RebuildPool) Submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	default:
	}

	if p.core+p.overflow < p.max {
		p.overflow++
		p.wg.Add(1)
		go p.overflowWorker(task)
		return nil
	}

	return ErrPoolSaturated
}

// Stop rejects further submits, drains queued tasks and waits for workers.
func (p *RebuildPool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.tasks)
	p.wg.Wait()
}

func (p *RebuildPool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

// overflowWorker runs its seed task, keeps draining while work is queued,
// then retires.
func (p *RebuildPool) overflowWorker(seed func()) {
	defer p.wg.Done()
	p.run(seed)
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				p.retire()
				return
			}
			p.run(task)
		default:
			p.retire()
			return
		}
	}
}

func (p *RebuildPool) retire() {
	p.mu.Lock()
	p.overflow--
	p.mu.Unlock()
}

func (p *RebuildPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("rebuild task panicked")
		}
	}()
	task()
}
