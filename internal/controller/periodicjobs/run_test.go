package periodicjobs_test

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/apprenticelog/apprenticelog/internal/controller/periodicjobs"
)

type MockPeriodicTask struct {
	name     string
	interval time.Duration
	runCount atomic.Int32
}

func (m *MockPeriodicTask) GetName() string {
	return m.name
}

func (m *MockPeriodicTask) GetInterval() time.Duration {
	return m.interval
}

func (m *MockPeriodicTask) Run(_ context.Context) error {
	m.runCount.Add(1)
	return nil
}

func runCount(task periodicjobs.PeriodicTask) int32 {
	mockTask, ok := task.(*MockPeriodicTask)
	Expect(ok).To(BeTrue())
	return mockTask.runCount.Load()
}

var _ = Describe("PeriodicTaskManager", func() {
	var (
		manager *periodicjobs.PeriodicTaskManager
		ctx     context.Context
		cancel  context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		manager = periodicjobs.NewPeriodicTaskManager()
		manager.AddTask(&MockPeriodicTask{name: "task1", interval: 100 * time.Millisecond})
		manager.AddTask(&MockPeriodicTask{name: "task2", interval: 200 * time.Millisecond})
	})

	AfterEach(func() {
		cancel()
		manager.Wait()
	})

	It("should run all tasks at their specified intervals", func() {
		Expect(manager.RunAll(ctx)).To(Succeed())

		for _, task := range manager.Tasks {
			Eventually(func() int32 { return runCount(task) }, time.Second, 20*time.Millisecond).
				Should(BeNumerically(">", 1), "Task should have run more than once")
		}
	})

	It("should run each task right away", func() {
		slow := &MockPeriodicTask{name: "slow", interval: time.Hour}
		manager.Tasks = []periodicjobs.PeriodicTask{slow}

		Expect(manager.RunAll(ctx)).To(Succeed())

		Eventually(slow.runCount.Load, time.Second, 10*time.Millisecond).Should(Equal(int32(1)))
	})

	It("should run a zero interval task only once", func() {
		once := &MockPeriodicTask{name: "once", interval: 0}
		manager.Tasks = []periodicjobs.PeriodicTask{once}

		Expect(manager.RunAll(ctx)).To(Succeed())
		manager.Wait()

		Expect(once.runCount.Load()).To(Equal(int32(1)))
	})

	It("should stop running tasks when context is canceled", func() {
		Expect(manager.RunAll(ctx)).To(Succeed())

		// Allow some time for tasks to run
		time.Sleep(300 * time.Millisecond)

		cancel()
		manager.Wait()

		runCounts := make(map[string]int32)
		for _, task := range manager.Tasks {
			runCounts[task.GetName()] = runCount(task)
		}

		// Wait a bit to ensure no more runs occur
		time.Sleep(300 * time.Millisecond)

		for _, task := range manager.Tasks {
			Expect(runCount(task)).To(Equal(runCounts[task.GetName()]), "Task should not run after context is canceled")
		}
	})
})
