package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFn is the function signature for scheduled tasks.
type TaskFn func()

// Scheduler runs named background tasks: fixed-interval tickers and
// one-shot delays. Registering a name that already exists replaces the
// running task. Task bodies are recovered so a panic cannot take the
// process down.
type Scheduler struct {
	mu     sync.Mutex
	tasks  map[string]*task
	logger *zap.Logger
	stopCh chan struct{}
}

type task struct {
	periodic bool
	stop     func()
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		tasks:  make(map[string]*task),
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// AddTicker registers a task to run on a fixed interval.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	s.register(name, &task{
		periodic: true,
		stop: func() {
			once.Do(func() {
				ticker.Stop()
				close(done)
			})
		},
	})

	go func() {
		for {
			select {
			case <-ticker.C:
				s.run(name, fn)
			case <-done:
				return
			case <-s.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered",
		zap.String("name", name), zap.Duration("interval", interval))
}

// AddDelay runs fn once after the given delay.
func (s *Scheduler) AddDelay(name string, delay time.Duration, fn TaskFn) {
	timer := time.AfterFunc(delay, func() {
		s.run(name, fn)
		s.mu.Lock()
		delete(s.tasks, name)
		s.mu.Unlock()
	})
	s.register(name, &task{
		stop: func() { timer.Stop() },
	})
}

// Remove stops and removes a task by name. Unknown names are ignored.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	if ok {
		delete(s.tasks, name)
	}
	s.mu.Unlock()
	if ok {
		t.stop()
	}
}

// Stop stops all tasks. Safe to call more than once.
func (s *Scheduler) Stop() {
	select {
	case <-s.stopCh:
		return
	default:
		close(s.stopCh)
	}
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = make(map[string]*task)
	s.mu.Unlock()
	for _, t := range tasks {
		t.stop()
	}
}

// ListTickers returns the names of all registered ticker tasks.
func (s *Scheduler) ListTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for name, t := range s.tasks {
		if t.periodic {
			names = append(names, name)
		}
	}
	return names
}

func (s *Scheduler) register(name string, t *task) {
	s.mu.Lock()
	old, existed := s.tasks[name]
	s.tasks[name] = t
	s.mu.Unlock()
	if existed {
		old.stop()
	}
}

func (s *Scheduler) run(name string, fn TaskFn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler task panicked",
				zap.String("task", name),
				zap.Any("recover", r))
		}
	}()
	fn()
}
