// Package async runs a set of named tasks on a small worker pool. The
// dashboard uses it to compute independent view aggregates in parallel
// during a batch refresh.
package async

import (
	"context"
	"sync"
)

type Task struct {
	Name    string
	Execute func() (any, error)
}

type Result struct {
	Name string
	Data any
	Err  error
}

type Pool struct {
	workerCount int
	tasks       chan Task
	results     chan Result
}

// NewPool builds a pool for one Execute call; pools are not reusable.
func NewPool(workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		workerCount: workerCount,
		tasks:       make(chan Task),
		results:     make(chan Result),
	}
}

func (p *Pool) worker(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			data, err := task.Execute()
			p.results <- Result{
				Name: task.Name,
				Data: data,
				Err:  err,
			}
		case <-ctx.Done():
			return
		}
	}
}

// Execute runs all tasks and returns results keyed by task name. On
// context cancellation it returns whatever completed so far.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	var wg sync.WaitGroup
	results := make(map[string]Result)

	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go p.worker(ctx, &wg)
	}

	go func() {
		for _, task := range tasks {
			select {
			case p.tasks <- task:
			case <-ctx.Done():
				return
			}
		}
		close(p.tasks)
	}()

	for i := 0; i < len(tasks); i++ {
		select {
		case result := <-p.results:
			results[result.Name] = result
		case <-ctx.Done():
			return results
		}
	}

	wg.Wait()
	close(p.results)

	return results
}
