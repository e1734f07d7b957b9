// Package vcard converts pasted text into a stream of vCard entries.
//
// A Processor runs one generation at a time on its own goroutine:
//
//	p := vcard.NewProcessor(contacts.NewParser(), vcard.NewCardEncoder())
//	p.AddProgressCallback(func(progress float64, determinate bool) { ... })
//	job, err := p.Generate(text, file)
//	result := job.Result()
//
// Lines that do not parse are recorded in GenerateResult.InvalidItems and the
// run continues. Any other error (a failing write, a panicking parser) is
// captured in GenerateResult.Exceptions and stops the run. Errors never cross
// the goroutine boundary any other way.
package vcard

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mrlokans/vcfgen/internal/contacts"
)

// ErrAlreadyRunning is returned when Generate is called on a processor whose
// previous run has not finished yet.
var ErrAlreadyRunning = errors.New("generation already running")

// LineParser turns one non-blank line into a contact. Errors wrapping
// contacts.ErrInvalidLine are validation failures; anything else is fatal.
type LineParser interface {
	ParseLine(line string) (contacts.Contact, error)
}

// Encoder serializes a contact into one complete vCard entry.
type Encoder interface {
	Encode(contact contacts.Contact) ([]byte, error)
}

// ProgressFunc receives progress updates. It is called on the worker
// goroutine, one call at a time, in order.
type ProgressFunc func(progress float64, determinate bool)

// ProgressMode selects how progress is reported.
type ProgressMode int

const (
	// ProgressDeterminate reports processed/total after every line.
	ProgressDeterminate ProgressMode = iota
	// ProgressIndeterminate only signals that work is ongoing.
	ProgressIndeterminate
)

// ProgressEvent is a single progress update.
type ProgressEvent struct {
	Progress    float64 `json:"progress"`
	Determinate bool    `json:"determinate"`
}

type Option func(*Processor)

// WithProgressMode overrides the default determinate progress reporting.
func WithProgressMode(mode ProgressMode) Option {
	return func(p *Processor) {
		p.mode = mode
	}
}

// Processor generates vCard output from text.
type Processor struct {
	parser  LineParser
	encoder Encoder
	mode    ProgressMode

	mu        sync.Mutex
	callbacks []ProgressFunc
	running   atomic.Bool
}

func NewProcessor(parser LineParser, encoder Encoder, opts ...Option) *Processor {
	p := &Processor{
		parser:  parser,
		encoder: encoder,
		mode:    ProgressDeterminate,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddProgressCallback subscribes fn to progress updates of subsequent runs.
func (p *Processor) AddProgressCallback(fn ProgressFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, fn)
}

// Generate starts converting text and writes entries to sink as they are
// produced. It returns immediately. The sink is not closed; that stays with
// the caller, who must not touch it until the job is done.
func (p *Processor) Generate(text string, sink io.Writer) (*Job, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}

	p.mu.Lock()
	callbacks := append([]ProgressFunc(nil), p.callbacks...)
	p.mu.Unlock()

	job := newJob()
	r := &run{
		parser:    p.parser,
		encoder:   p.encoder,
		mode:      p.mode,
		callbacks: callbacks,
		sink:      sink,
	}
	go func() {
		result := r.execute(text)
		p.running.Store(false)
		job.finish(result)
	}()
	return job, nil
}

// rawLine is one input line with its 1-based number.
type rawLine struct {
	Number int
	Text   string
}

// splitLines splits on \n, dropping a trailing \r from each line. A final
// terminator does not start an extra, empty line.
func splitLines(text string) []rawLine {
	if text == "" {
		return nil
	}
	parts := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	lines := make([]rawLine, len(parts))
	for i, part := range parts {
		lines[i] = rawLine{Number: i + 1, Text: strings.TrimSuffix(part, "\r")}
	}
	return lines
}

// run holds the state of a single generation. Only the worker goroutine
// touches it.
type run struct {
	parser    LineParser
	encoder   Encoder
	mode      ProgressMode
	callbacks []ProgressFunc
	sink      io.Writer

	result       GenerateResult
	lastProgress float64
}

func (r *run) execute(text string) (result GenerateResult) {
	defer func() {
		if v := recover(); v != nil {
			r.result.Exceptions = append(r.result.Exceptions, newPanicError(v))
		}
		result = r.result
	}()

	r.emit(0, false)

	lines := splitLines(text)
	r.result.TotalLines = len(lines)

	for _, line := range lines {
		if err := r.processLine(line); err != nil {
			r.result.Exceptions = append(r.result.Exceptions, &LineError{Line: line.Number, Err: err})
			return
		}
		r.result.Processed++
		r.reportProgress()
	}

	if len(lines) == 0 {
		r.emit(1, r.mode == ProgressDeterminate)
	}
	return
}

// processLine returns only unexpected errors. Validation failures are
// recorded on the result.
func (r *run) processLine(line rawLine) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = newPanicError(v)
		}
	}()

	if strings.TrimSpace(line.Text) == "" {
		r.result.Skipped++
		return nil
	}

	contact, err := r.parser.ParseLine(line.Text)
	if errors.Is(err, contacts.ErrInvalidLine) {
		r.result.InvalidItems = append(r.result.InvalidItems, InvalidItem{
			Line:    line.Number,
			Content: line.Text,
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	entry, err := r.encoder.Encode(contact)
	if err != nil {
		return err
	}

	n, err := r.sink.Write(entry)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	if n != len(entry) {
		return fmt.Errorf("write entry: %w", io.ErrShortWrite)
	}
	r.result.Written++
	return nil
}

func (r *run) reportProgress() {
	if r.mode == ProgressIndeterminate {
		r.emit(0, false)
		return
	}
	progress := float64(r.result.Processed) / float64(r.result.TotalLines)
	if r.result.Processed == r.result.TotalLines {
		progress = 1
	}
	r.emit(progress, true)
}

func (r *run) emit(progress float64, determinate bool) {
	if determinate {
		if progress < r.lastProgress {
			progress = r.lastProgress
		}
		r.lastProgress = progress
	}
	for _, fn := range r.callbacks {
		fn(progress, determinate)
	}
}
