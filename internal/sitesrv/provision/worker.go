package provision

import (
	"context"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/Luna-Sites/lunasites-platform/internal/sitesrv/config"
)

type task struct {
	name string
	fn   func(ctx context.Context) error
	done func(err error)
}

// Dispatcher runs provisioning tasks on a bounded worker pool. Submission is
// fire-and-forget from the caller's point of view; the completion callback is
// the seam where the tenant's status gets updated, so the caller's polled view
// stays accurate even when the task dies.
type Dispatcher struct {
	tasks   chan task
	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc
	once    sync.Once
}

func NewDispatcher(workers int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(log.Logger.WithContext(context.Background()))
	d := &Dispatcher{
		tasks:   make(chan task, workers*4),
		baseCtx: ctx,
		cancel:  cancel,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.tasks {
		err := d.run(t)
		if t.done != nil {
			t.done(err)
		}
	}
}

func (d *Dispatcher) run(t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(d.baseCtx).Error().Interface("panic", r).Str("task", t.name).Msg("task panicked")
			err = ErrProvisioning.Msg("task panicked")
		}
	}()
	log.Ctx(d.baseCtx).Info().Str("task", t.name).Msg("running task")
	return t.fn(d.baseCtx)
}

// Submit queues a task. The task runs on the dispatcher's own context, not the
// submitting request's, so it survives the request returning.
func (d *Dispatcher) Submit(name string, fn func(ctx context.Context) error, done func(err error)) {
	d.tasks <- task{name: name, fn: fn, done: done}
}

// Shutdown stops accepting tasks and waits for in-flight ones.
func (d *Dispatcher) Shutdown() {
	d.once.Do(func() {
		close(d.tasks)
	})
	d.wg.Wait()
	d.cancel()
}

// StatusCheck asks the external hosting provider whether the tenant's
// deployment is live.
type StatusCheck func(ctx context.Context) (bool, error)

// DeployPoller polls an external deployment status with a fixed attempt
// ceiling and interval. Exhausting the budget is not an error: delayed
// external infrastructure leaves the tenant pending, never errored.
type DeployPoller struct {
	check    StatusCheck
	attempts uint
	interval time.Duration
}

func NewDeployPoller(check StatusCheck) *DeployPoller {
	cfg := config.Config()
	attempts := cfg.DeployAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &DeployPoller{
		check:    check,
		attempts: uint(attempts),
		interval: cfg.DeployPollInterval(),
	}
}

// Wait blocks until the deployment is confirmed or the budget runs out.
// Returns false on exhaustion.
func (dp *DeployPoller) Wait(ctx context.Context) bool {
	if dp.check == nil {
		return true
	}
	err := retry.Do(func() error {
		live, err := dp.check(ctx)
		if err != nil {
			return err
		}
		if !live {
			return ErrDeployNotReady
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(dp.attempts),
		retry.Delay(dp.interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("deployment not confirmed within budget, leaving site pending")
		return false
	}
	return true
}
