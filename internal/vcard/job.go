package vcard

import (
	"context"
	"sync"
)

// Job is the handle for one running generation.
type Job struct {
	done   chan struct{}
	once   sync.Once
	result GenerateResult
}

func newJob() *Job {
	return &Job{done: make(chan struct{})}
}

func (j *Job) finish(result GenerateResult) {
	j.once.Do(func() {
		j.result = result
		close(j.done)
	})
}

// Done is closed once the run has finished and its result is available.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Result blocks until the run has finished.
func (j *Job) Result() GenerateResult {
	<-j.done
	return j.result
}

// Wait blocks until the run finishes or ctx is done. Giving up on the wait
// does not stop the run; it still completes and releases the sink.
func (j *Job) Wait(ctx context.Context) (GenerateResult, error) {
	select {
	case <-j.done:
		return j.result, nil
	case <-ctx.Done():
		return GenerateResult{}, ctx.Err()
	}
}
