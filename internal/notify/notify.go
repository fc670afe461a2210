// Package notify delivers reminder messages. The pipeline is asynchronous:
// a bounded queue feeds workers that rate-limit and retry sends against a
// pluggable sink (Telegram or log-only).
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logx "medremind/pkg/logx"
)

var (
	ErrQueueFull = errors.New("notify queue full")
	ErrStopped   = errors.New("notify stopped")
)

// Message is a rendered notification ready for delivery.
type Message struct {
	Text     string
	Priority int
}

// Dispatcher accepts messages for delivery. Dispatch never blocks on the
// network; it only enqueues.
type Dispatcher interface {
	Dispatch(ctx context.Context, m Message) error
}

// Sink performs the actual send.
type Sink interface {
	Send(ctx context.Context, text string) error
	Close()
}

// Config controls the delivery pipeline.
type Config struct {
	Workers    int
	QueueSize  int
	RatePerSec int
	RetryMax   int
	RetryBase  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 1
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	return c
}

// Service implements Dispatcher over a Sink. Safe for concurrent use.
type Service struct {
	cfg     Config
	sink    Sink
	log     logx.Logger
	limiter *rate.Limiter

	mu        sync.Mutex
	queue     chan Message
	accepting bool
	wg        sync.WaitGroup
	cancel    context.CancelFunc
}

func NewService(cfg Config, sink Sink, log logx.Logger) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		cfg:     cfg,
		sink:    sink,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// Start spins up the worker pool. Idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.queue = make(chan Message, s.cfg.QueueSize)
	s.accepting = true
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(runCtx, s.queue)
	}
}

// Stop blocks new dispatches and drains the queue until ctx expires.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	q := s.queue
	cancel := s.cancel
	if q == nil {
		s.mu.Unlock()
		return
	}
	s.accepting = false
	s.queue = nil
	s.cancel = nil
	s.mu.Unlock()

	close(q)
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		cancel()
		<-done
	}
	s.sink.Close()
}

func (s *Service) Dispatch(_ context.Context, m Message) error {
	if m.Text == "" {
		return nil
	}
	s.mu.Lock()
	q := s.queue
	accepting := s.accepting
	s.mu.Unlock()
	if q == nil || !accepting {
		return ErrStopped
	}
	select {
	case q <- m:
		return nil
	default:
		s.log.Warn("notification dropped", logx.Int("queue_cap", cap(q)))
		return ErrQueueFull
	}
}

func (s *Service) worker(ctx context.Context, q <-chan Message) {
	defer s.wg.Done()
	for m := range q {
		s.send(ctx, m)
	}
}

func (s *Service) send(ctx context.Context, m Message) {
	attempts := 1 + s.cfg.RetryMax
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := s.sink.Send(callCtx, m.Text)
		cancel()
		if err == nil {
			return
		}
		s.log.Warn("notification send failed",
			logx.Err(err), logx.Int("attempt", attempt), logx.Int("max", attempts))
		if attempt >= attempts {
			return
		}
		delay := s.cfg.RetryBase * time.Duration(1<<(attempt-1))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// LogSink writes notifications to the log. Used when no Telegram channel is
// configured.
type LogSink struct {
	Log logx.Logger
}

func (s LogSink) Send(_ context.Context, text string) error {
	s.Log.Info("notification", logx.String("text", text))
	return nil
}

func (s LogSink) Close() {}

// ReminderText renders the message for a due intake.
func ReminderText(name, clock, dose, rule string, lowStock bool, quantity int) string {
	text := fmt.Sprintf("💊 Time to take %s at %s", name, clock)
	if dose != "" {
		text += fmt.Sprintf("\nDose: %s", dose)
	}
	if rule != "" {
		text += fmt.Sprintf("\nInstructions: %s", rule)
	}
	if lowStock {
		text += fmt.Sprintf("\n⚠️ Stock is low: %d left", quantity)
	}
	return text
}

// LowStockText renders the standalone low-stock warning.
func LowStockText(name string, quantity int) string {
	return fmt.Sprintf("⚠️ %s is running low: %d left. Time to restock.", name, quantity)
}
