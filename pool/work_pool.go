package pool

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

type Task interface {
	Execute(ctx context.Context)
}

type Pool interface {
	AddTask(task Task)
	Run(ctx context.Context)
}

// WorkPool runs its tasks with at most size of them in flight. Run returns
// once every started task has finished.
type WorkPool struct {
	size  int64
	sem   *semaphore.Weighted
	tasks []Task
}

func NewWorkPool(maxWorkers int) *WorkPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkPool{
		size:  int64(maxWorkers),
		sem:   semaphore.NewWeighted(int64(maxWorkers)),
		tasks: make([]Task, 0),
	}
}

func (p *WorkPool) AddTask(task Task) {
	p.tasks = append(p.tasks, task)
}

func (p *WorkPool) Run(ctx context.Context) {
	for _, task := range p.tasks {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			logrus.Errorf("failed to acquire semaphore: %v", err)
			break
		}

		go func(task Task) {
			defer p.sem.Release(1)
			task.Execute(ctx)
		}(task)
	}

	// wait for in-flight tasks; a cancelled ctx must not skip the wait
	if err := p.sem.Acquire(context.Background(), p.size); err != nil {
		logrus.Errorf("failed to acquire semaphore: %v", err)
		return
	}
	p.sem.Release(p.size)
}
