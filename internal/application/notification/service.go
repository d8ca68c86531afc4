package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/govscheme-portal/internal/infrastructure/metrics"
	"golang.org/x/sync/errgroup"
)

// Task kinds, used as log fields and metric labels.
const (
	KindOTPEmail       = "otp_email"
	KindWelcomeEmail   = "welcome_email"
	KindSchemeFanout   = "scheme_fanout"
	KindSchemeAnnounce = "scheme_announce"
)

// untimed kinds run without the per-task timeout. A fanout sends one email per
// recipient and its length grows with the user base.
var untimed = map[string]bool{KindSchemeFanout: true}

// Task is a unit of background work. Its error is logged, never returned to the submitter.
type Task func(ctx context.Context) error

type job struct {
	kind string
	task Task
}

// Dispatcher runs submitted tasks on a fixed pool of workers, off the request path.
// Delivery is best-effort: a full queue drops the task.
type Dispatcher struct {
	queue   chan job
	workers int
	timeout time.Duration
	metrics *metrics.Metrics
}

func NewDispatcher(workers, queueSize int, timeout time.Duration, m *metrics.Metrics) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		queue:   make(chan job, queueSize),
		workers: workers,
		timeout: timeout,
		metrics: m,
	}
}

// Submit enqueues task without blocking.
func (d *Dispatcher) Submit(kind string, task Task) {
	select {
	case d.queue <- job{kind: kind, task: task}:
	default:
		slog.Warn("notification queue full, dropping task", "kind", kind)
		d.metrics.IncTaskDropped(kind)
	}
}

// Run starts the workers and blocks until ctx is cancelled. Tasks still queued at
// that point are drained before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					d.drain()
					return nil
				case j := <-d.queue:
					d.execute(ctx, j)
				}
			}
		})
	}
	return g.Wait()
}

func (d *Dispatcher) drain() {
	for {
		select {
		case j := <-d.queue:
			d.execute(context.Background(), j)
		default:
			return
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, j job) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			slog.Error("background task panicked", "kind", j.kind, "panic", r)
		}
		d.metrics.ObserveTask(j.kind, outcome, time.Since(start))
	}()

	if d.timeout > 0 && !untimed[j.kind] {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := j.task(ctx); err != nil {
		outcome = "error"
		slog.Warn("background task failed", "kind", j.kind, "err", err)
	}
}
