package periodicjobs

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/apprenticelog/apprenticelog/pkg/logger"
)

const (
	syncOnceInterval time.Duration = 0
)

// RunAll runs all the tasks in the PeriodicTaskManager
// it launches a new goroutine for each task
// each task runs right away, then on a ticker at its interval
// and stops when the context is canceled
// If interval == 0, the task is run only once.
func (p *PeriodicTaskManager) RunAll(ctx context.Context) error {
	log := logger.Logger(ctx)
	log.WithField("tasks", len(p.Tasks)).Info("running periodic tasks")

	for _, task := range p.Tasks {
		p.wg.Add(1)
		go func(task PeriodicTask) {
			defer p.wg.Done()
			p.runTask(ctx, task)
		}(task)
	}
	return nil
}

// Wait blocks until every task started by RunAll has returned
func (p *PeriodicTaskManager) Wait() {
	p.wg.Wait()
}

func (*PeriodicTaskManager) runTask(ctx context.Context, task PeriodicTask) {
	interval := task.GetInterval()
	log := logger.Logger(ctx).WithFields(logrus.Fields{
		"task":     task.GetName(),
		"interval": interval,
	})

	run := func() {
		log.Info("running periodic task")
		if err := task.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("error running periodic task")
		}
	}

	run()
	if interval <= syncOnceInterval {
		log.Info("task configured to run only once, exiting")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("stopping periodic task")
			return
		case <-ticker.C:
			run()
		}
	}
}
