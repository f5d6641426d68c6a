package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/apprenticelog/apprenticelog/internal/controller/periodicjobs"
	"github.com/apprenticelog/apprenticelog/pkg/cache"
	"github.com/apprenticelog/apprenticelog/pkg/config"
	"github.com/apprenticelog/apprenticelog/pkg/logger"
	"github.com/apprenticelog/apprenticelog/pkg/store"
)

const (
	defaultHealthRetries    = 5
	defaultHealthRetryDelay = 2 * time.Second
)

// PeriodicTasksRunner waits for the cache and then hands the configured jobs
// to a PeriodicTaskManager.
type PeriodicTasksRunner struct {
	taskManager *periodicjobs.PeriodicTaskManager
	cacheClient cache.Cache

	healthRetries    int
	healthRetryDelay time.Duration
}

func NewPeriodicTasksRunner(
	cfg *config.AppConfig,
	cacheClient cache.Cache,
	commentContexts store.Store,
) *PeriodicTasksRunner {
	periodicTaskManager := periodicjobs.NewPeriodicTaskManager()

	if cfg.TrainingYear.RolloverEnabled {
		periodicjobs.NewTrainingYearRolloverJob(
			commentContexts,
			cacheClient,
			cfg.TrainingYear.DateLayouts,
			cfg.TrainingYear.RolloverInterval,
		).AddToPeriodicTaskManager(periodicTaskManager)
	}

	return newPeriodicTasksRunner(periodicTaskManager, cacheClient)
}

func newPeriodicTasksRunner(mgr *periodicjobs.PeriodicTaskManager, cacheClient cache.Cache) *PeriodicTasksRunner {
	return &PeriodicTasksRunner{
		taskManager:      mgr,
		cacheClient:      cacheClient,
		healthRetries:    defaultHealthRetries,
		healthRetryDelay: defaultHealthRetryDelay,
	}
}

// TaskNames lists the registered jobs
func (ptr *PeriodicTasksRunner) TaskNames() []string {
	names := make([]string, 0, len(ptr.taskManager.Tasks))
	for _, task := range ptr.taskManager.Tasks {
		names = append(names, task.GetName())
	}
	return names
}

// Start the periodic tasks.
// Tasks keep running in the background until ctx is canceled; use Wait to block on them.
func (ptr *PeriodicTasksRunner) Start(ctx context.Context) error {
	log := logger.Logger(ctx)
	log.WithField("tasks", ptr.TaskNames()).Info("starting periodic tasks runner")

	// Wait for dependencies (cache, etc.) to be ready using health checks
	if err := ptr.waitForDependencies(ctx); err != nil {
		log.WithError(err).Error("failed to wait for dependencies")
		return err
	}

	if err := ptr.taskManager.RunAll(ctx); err != nil {
		log.WithError(err).Error("error occurred while running periodic tasks")
		return err
	}

	log.Info("all periodic tasks have been started successfully")
	return nil
}

// Wait blocks until all started tasks have stopped
func (ptr *PeriodicTasksRunner) Wait() {
	ptr.taskManager.Wait()
}

func (ptr *PeriodicTasksRunner) waitForDependencies(ctx context.Context) error {
	if err := ptr.waitForCacheHealth(ctx); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}

// waitForCacheHealth runs a set/get/delete round trip until it succeeds or retries run out
func (ptr *PeriodicTasksRunner) waitForCacheHealth(ctx context.Context) error {
	log := logger.Logger(ctx)
	log.Info("performing cache health check")

	var lastErr error
	for i := 0; i < ptr.healthRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(ptr.healthRetryDelay):
			}
		}

		if lastErr = ptr.checkCache(ctx); lastErr == nil {
			log.WithField("attempt", i+1).Info("cache health check passed")
			return nil
		}

		log.WithFields(logrus.Fields{
			"attempt": i + 1,
			"error":   lastErr,
		}).Warn("cache health check failed, retrying")
	}

	return fmt.Errorf("failed after %d attempts: %w", ptr.healthRetries, lastErr)
}

func (ptr *PeriodicTasksRunner) checkCache(ctx context.Context) error {
	testKey := fmt.Sprintf("health_check_%d", time.Now().UnixNano())

	if err := ptr.cacheClient.Set(ctx, testKey, "healthy", 30*time.Second); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	if _, err := ptr.cacheClient.Get(ctx, testKey); err != nil {
		return fmt.Errorf("get: %w", err)
	}
	// Clean up test key
	_ = ptr.cacheClient.Delete(ctx, testKey)
	return nil
}
