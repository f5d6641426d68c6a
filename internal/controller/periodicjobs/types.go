package periodicjobs

import (
	"context"
	"sync"
	"time"
)

// PeriodicTask is a job the PeriodicTaskManager runs every GetInterval.
// An interval of 0 runs the task once.
type PeriodicTask interface {
	Run(ctx context.Context) error
	GetInterval() time.Duration
	GetName() string
}

type PeriodicTaskManager struct {
	Tasks []PeriodicTask

	wg sync.WaitGroup
}

// NewPeriodicTaskManager creates a new PeriodicTaskManager
// used manage interval based tasks
func NewPeriodicTaskManager() *PeriodicTaskManager {
	return &PeriodicTaskManager{
		Tasks: []PeriodicTask{},
	}
}

func (p *PeriodicTaskManager) AddTask(task PeriodicTask) {
	p.Tasks = append(p.Tasks, task)
}
