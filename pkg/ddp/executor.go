package ddp

import (
	"log"
	"runtime/debug"
	"sync"

	"github.com/eapache/queue"
)

// executor runs subscription callbacks. Tasks of the same stream always run
// one at a time and in submission order.
type executor interface {
	execute(stream string, task func())
	wait()
}

type inlineExecutor struct {
	logger *log.Logger
}

func (e *inlineExecutor) execute(_ string, task func()) {
	runTask(e.logger, task)
}

func (e *inlineExecutor) wait() {}

// poolExecutor hands each stream with queued events to one of at most `size`
// goroutines. submit blocks while every worker is busy.
type poolExecutor struct {
	logger *log.Logger
	slots  chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	backlog map[string]*queue.Queue
}

func newPoolExecutor(size int, logger *log.Logger) *poolExecutor {
	return &poolExecutor{
		logger:  logger,
		slots:   make(chan struct{}, size),
		backlog: map[string]*queue.Queue{},
	}
}

func (e *poolExecutor) execute(stream string, task func()) {
	e.mu.Lock()
	if q, draining := e.backlog[stream]; draining {
		q.Add(task)
		e.mu.Unlock()
		return
	}
	q := queue.New()
	q.Add(task)
	e.backlog[stream] = q
	e.mu.Unlock()

	e.slots <- struct{}{}
	e.wg.Add(1)
	go e.drain(stream)
}

func (e *poolExecutor) drain(stream string) {
	defer func() {
		<-e.slots
		e.wg.Done()
	}()
	for {
		e.mu.Lock()
		q := e.backlog[stream]
		if q.Length() == 0 {
			delete(e.backlog, stream)
			e.mu.Unlock()
			return
		}
		task := q.Remove().(func())
		e.mu.Unlock()
		runTask(e.logger, task)
	}
}

func (e *poolExecutor) wait() {
	e.wg.Wait()
}

func runTask(logger *log.Logger, task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("subscription callback panicked: %v\n%s", r, debug.Stack())
		}
	}()
	task()
}
