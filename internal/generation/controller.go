// Package generation tracks the caller-side lifecycle of vCard generation:
// a shell owns one Controller and asks it whether a run is in progress
// instead of keeping its own flags.
package generation

import (
	"errors"
	"io"
	"sync"

	"github.com/mrlokans/vcfgen/internal/contacts"
	"github.com/mrlokans/vcfgen/internal/vcard"
)

// ErrBusy is returned by Start while a previous run is still going.
var ErrBusy = errors.New("a generation is already in progress")

// Phase is the lifecycle phase of the controller.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
)

// State is a snapshot of the controller. Result is set only when Phase is
// PhaseCompleted.
type State struct {
	Phase  Phase
	Result *vcard.GenerateResult
}

// ProcessorFactory builds a fresh processor for each run.
type ProcessorFactory func() *vcard.Processor

// DefaultProcessorFactory wires the standard contact parser and vCard encoder.
func DefaultProcessorFactory() *vcard.Processor {
	return vcard.NewProcessor(contacts.NewParser(), vcard.NewCardEncoder())
}

// Controller moves between Idle, Running and Completed as runs start and
// finish.
type Controller struct {
	newProcessor ProcessorFactory

	mu         sync.Mutex
	state      State
	onProgress vcard.ProgressFunc
	onComplete func(vcard.GenerateResult)
}

func NewController(factory ProcessorFactory) *Controller {
	if factory == nil {
		factory = DefaultProcessorFactory
	}
	return &Controller{
		newProcessor: factory,
		state:        State{Phase: PhaseIdle},
	}
}

// SetProgressHandler sets the callback for progress of subsequent runs. It is
// invoked on the worker goroutine.
func (c *Controller) SetProgressHandler(fn vcard.ProgressFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onProgress = fn
}

// SetCompletionHandler sets the callback invoked after a run has moved the
// controller to Completed.
func (c *Controller) SetCompletionHandler(fn func(vcard.GenerateResult)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onComplete = fn
}

// Start launches a run writing to sink. The sink must stay open until the
// returned job is done.
func (c *Controller) Start(text string, sink io.Writer) (*vcard.Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase == PhaseRunning {
		return nil, ErrBusy
	}

	processor := c.newProcessor()
	if c.onProgress != nil {
		processor.AddProgressCallback(c.onProgress)
	}

	job, err := processor.Generate(text, sink)
	if err != nil {
		return nil, err
	}
	c.state = State{Phase: PhaseRunning}

	onComplete := c.onComplete
	go func() {
		result := job.Result()

		c.mu.Lock()
		c.state = State{Phase: PhaseCompleted, Result: &result}
		c.mu.Unlock()

		if onComplete != nil {
			onComplete(result)
		}
	}()

	return job, nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CanExit reports whether the shell may shut down. Runs are never torn down
// mid-write, so exiting is refused while one is active.
func (c *Controller) CanExit() bool {
	return c.State().Phase != PhaseRunning
}
