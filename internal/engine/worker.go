package engine

import (
	"sync"

	"github.com/uvcc-go/uvcc/internal/logging"
)

// workerPool is a fixed-size goroutine pool draining a shared job queue --
// the Go-idiomatic equivalent of the engine's native thread pool (spec.md
// §5, §6 queue_work). It is owned by the Linux reactor; the non-Linux stub
// never constructs one, since its NewReactor fails before any pool is built.
type workerPool struct {
	jobs chan workerJob

	mu      sync.Mutex
	results []WorkResult
	wake    func()

	wg sync.WaitGroup
}

type workerJob struct {
	userData uint64
	fn       WorkFunc
}

func newWorkerPool(n int, wake func()) *workerPool {
	if n <= 0 {
		n = defaultWorkerCount()
	}
	p := &workerPool{
		jobs: make(chan workerJob, 64),
		wake: wake,
	}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.loop()
	}
	return p
}

func defaultWorkerCount() int {
	// libuv's default threadpool size is 4; we follow the same modest
	// default rather than scaling with NumCPU, since fs/DNS/work requests
	// are typically latency- not throughput-bound.
	return 4
}

func (p *workerPool) loop() {
	defer p.wg.Done()
	for job := range p.jobs {
		value, err := job.fn()
		if err != nil {
			logging.Default().Warn("queued work failed", "userData", job.userData, "error", err)
		}
		p.mu.Lock()
		p.results = append(p.results, WorkResult{UserData: job.userData, Value: value, Err: err})
		p.mu.Unlock()
		if p.wake != nil {
			p.wake()
		}
	}
}

func (p *workerPool) submit(userData uint64, fn WorkFunc) {
	p.jobs <- workerJob{userData: userData, fn: fn}
}

func (p *workerPool) drain() []WorkResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.results) == 0 {
		return nil
	}
	out := p.results
	p.results = nil
	return out
}

func (p *workerPool) close() {
	close(p.jobs)
	p.wg.Wait()
}
