package controller

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/apprenticelog/apprenticelog/internal/controller/periodicjobs"
	"github.com/apprenticelog/apprenticelog/pkg/cache"
	"github.com/apprenticelog/apprenticelog/pkg/cache/inmemory"
	"github.com/apprenticelog/apprenticelog/pkg/common/structs"
	"github.com/apprenticelog/apprenticelog/pkg/config"
	"github.com/apprenticelog/apprenticelog/pkg/store"
)

// flakyCache fails the first failures Set calls
type flakyCache struct {
	cache.Cache
	failures int32
	sets     atomic.Int32
}

func (f *flakyCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if f.sets.Add(1) <= f.failures {
		return errors.New("connection refused")
	}
	return f.Cache.Set(ctx, key, value, ttl)
}

type countingTask struct {
	runs atomic.Int32
}

func (c *countingTask) Run(context.Context) error {
	c.runs.Add(1)
	return nil
}

func (c *countingTask) GetInterval() time.Duration {
	return 0
}

func (c *countingTask) GetName() string {
	return "counting"
}

var _ = Describe("PeriodicTasksRunner", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		mem    *inmemory.InMemoryCache
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		var err error
		mem, err = inmemory.NewCache(nil)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cancel()
	})

	newRunner := func(c cache.Cache, task periodicjobs.PeriodicTask) *PeriodicTasksRunner {
		mgr := periodicjobs.NewPeriodicTaskManager()
		mgr.AddTask(task)
		runner := newPeriodicTasksRunner(mgr, c)
		runner.healthRetries = 3
		runner.healthRetryDelay = 10 * time.Millisecond
		return runner
	}

	It("registers the rollover job when enabled", func() {
		cfg := &config.AppConfig{TrainingYear: config.TrainingYear{RolloverEnabled: true, RolloverInterval: time.Hour}}
		runner := NewPeriodicTasksRunner(cfg, mem, store.New(mem, 0, nil))
		Expect(runner.TaskNames()).To(Equal([]string{periodicjobs.TrainingYearRolloverJobName}))

		cfg.TrainingYear.RolloverEnabled = false
		runner = NewPeriodicTasksRunner(cfg, mem, store.New(mem, 0, nil))
		Expect(runner.TaskNames()).To(BeEmpty())
	})

	It("starts the tasks once the cache is healthy", func() {
		task := &countingTask{}
		runner := newRunner(mem, task)

		Expect(runner.Start(ctx)).To(Succeed())
		runner.Wait()

		Expect(task.runs.Load()).To(Equal(int32(1)))
		Expect(mem.GetByPattern(ctx, "health_check_*")).To(BeEmpty())
	})

	It("retries the health check", func() {
		task := &countingTask{}
		flaky := &flakyCache{Cache: mem, failures: 2}
		runner := newRunner(flaky, task)

		Expect(runner.Start(ctx)).To(Succeed())
		runner.Wait()

		Expect(flaky.sets.Load()).To(Equal(int32(3)))
		Expect(task.runs.Load()).To(Equal(int32(1)))
	})

	It("gives up when the cache stays down", func() {
		task := &countingTask{}
		runner := newRunner(&flakyCache{Cache: mem, failures: 100}, task)

		err := runner.Start(ctx)
		Expect(err).To(MatchError(ContainSubstring("cache health check failed")))
		Expect(err).To(MatchError(ContainSubstring("connection refused")))
		Expect(task.runs.Load()).To(BeZero())
	})

	It("stops waiting when the context is canceled", func() {
		runner := newRunner(&flakyCache{Cache: mem, failures: 100}, &countingTask{})
		runner.healthRetryDelay = time.Hour

		cancel()
		Expect(runner.Start(ctx)).To(MatchError(context.Canceled))
	})

	It("rolls stored training years over on start", func() {
		s := store.New(mem, 0, nil)
		Expect(s.Put(ctx, "adam", structs.NewCommentContext("01.08.2019", 1, "Platform"))).To(Succeed())
		Expect(mem.Set(ctx, periodicjobs.RolloverLastRunKey, "2020-07-31T00:00:00Z", cache.NoExpiration)).To(Succeed())

		job := periodicjobs.NewTrainingYearRolloverJob(s, mem, nil, time.Hour).
			WithClock(func() time.Time { return time.Date(2020, time.September, 1, 0, 0, 0, 0, time.UTC) })
		runner := newRunner(mem, job)

		Expect(runner.Start(ctx)).To(Succeed())

		Eventually(func() int {
			cc, err := s.Get(ctx, "adam")
			Expect(err).NotTo(HaveOccurred())
			return cc.GetTrainingYear()
		}, time.Second, 10*time.Millisecond).Should(Equal(2))

		cancel()
		runner.Wait()
	})
})
