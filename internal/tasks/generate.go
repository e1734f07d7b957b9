package tasks

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mikestefanello/backlite"
	"golang.org/x/crypto/blake2b"

	"github.com/mrlokans/vcfgen/internal/database/generations"
	"github.com/mrlokans/vcfgen/internal/entities"
	"github.com/mrlokans/vcfgen/internal/generation"
	"github.com/mrlokans/vcfgen/internal/vcard"
)

// GenerationStore is the persistence the generate task needs.
type GenerationStore interface {
	GetByID(id uint) (*entities.Generation, error)
	MarkRunning(id uint, totalLines int) error
	UpdateProgress(id uint, processed int, progress float64, determinate bool) error
	Complete(id uint, c generations.Completion) error
}

// GenerationAuditor records finished generations.
type GenerationAuditor interface {
	LogGeneration(action, generationID string, result vcard.GenerateResult)
}

// GenerateVCardTask turns the input text of a stored generation into a .vcf file.
type GenerateVCardTask struct {
	GenerationID uint `json:"generation_id"`
}

// Config returns the queue configuration for generation tasks.
// Runs are not retried: a second attempt would rewrite the same output file.
func (t GenerateVCardTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "generate_vcard",
		MaxAttempts: 1,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// GenerateVCardDeps holds what the generate processor needs.
type GenerateVCardDeps struct {
	Store     GenerationStore
	Auditor   GenerationAuditor
	OutputDir string

	// NewProcessor defaults to generation.DefaultProcessorFactory.
	NewProcessor generation.ProcessorFactory

	// ProgressInterval throttles progress writes. Default: 250ms
	ProgressInterval time.Duration
}

// GenerateVCardProcessor creates a processor function for GenerateVCardTask.
func GenerateVCardProcessor(deps GenerateVCardDeps) backlite.QueueProcessor[GenerateVCardTask] {
	if deps.NewProcessor == nil {
		deps.NewProcessor = generation.DefaultProcessorFactory
	}
	if deps.ProgressInterval <= 0 {
		deps.ProgressInterval = 250 * time.Millisecond
	}

	return func(ctx context.Context, task GenerateVCardTask) error {
		if deps.Store == nil {
			return fmt.Errorf("generation store not configured")
		}

		gen, err := deps.Store.GetByID(task.GenerationID)
		if err != nil {
			return fmt.Errorf("load generation %d: %w", task.GenerationID, err)
		}
		if gen.Status.IsFinished() {
			log.Printf("[TASK] Generation %s already finished with status %s", gen.PublicID, gen.Status)
			return nil
		}

		totalLines := countLines(gen.Input)
		if err := deps.Store.MarkRunning(gen.ID, totalLines); err != nil {
			return fmt.Errorf("mark generation %d running: %w", gen.ID, err)
		}

		run, err := generateFile(ctx, deps, gen, totalLines)
		if err != nil {
			// Nothing was written; record the failure so pollers stop waiting.
			run = fileRun{result: vcard.GenerateResult{TotalLines: totalLines, Exceptions: []error{err}}}
		}

		completion := generations.Completion{
			Status:     statusFor(run.result.Outcome()),
			TotalLines: run.result.TotalLines,
			Processed:  run.result.Processed,
			Written:    run.result.Written,
			OutputPath: run.path,
			Checksum:   run.checksum,
			Error:      joinErrors(run.result.Exceptions),
		}
		for _, item := range run.result.InvalidItems {
			completion.InvalidLines = append(completion.InvalidLines, entities.InvalidLine{
				Line:    item.Line,
				Content: item.Content,
			})
		}

		if err := deps.Store.Complete(gen.ID, completion); err != nil {
			return fmt.Errorf("complete generation %d: %w", gen.ID, err)
		}
		if deps.Auditor != nil {
			deps.Auditor.LogGeneration("web_generate", gen.PublicID, run.result)
		}

		log.Printf("[TASK] Generation %s finished: %s (%d written, %d invalid, %d exceptions)",
			gen.PublicID, completion.Status, run.result.Written, len(run.result.InvalidItems), len(run.result.Exceptions))
		return nil
	}
}

// NewGenerateVCardQueue creates a backlite queue for generation tasks.
func NewGenerateVCardQueue(deps GenerateVCardDeps) backlite.Queue {
	return backlite.NewQueue(GenerateVCardProcessor(deps))
}

type fileRun struct {
	result   vcard.GenerateResult
	path     string
	checksum string
}

func generateFile(ctx context.Context, deps GenerateVCardDeps, gen *entities.Generation, totalLines int) (fileRun, error) {
	if err := os.MkdirAll(deps.OutputDir, 0755); err != nil {
		return fileRun{}, fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(deps.OutputDir, gen.PublicID+".vcf")
	file, err := os.Create(path)
	if err != nil {
		return fileRun{}, fmt.Errorf("create output file: %w", err)
	}

	hasher, err := blake2b.New256(nil)
	if err != nil {
		file.Close()
		return fileRun{}, fmt.Errorf("create hasher: %w", err)
	}

	recorder := &progressRecorder{
		store:    deps.Store,
		id:       gen.ID,
		total:    totalLines,
		interval: deps.ProgressInterval,
	}
	processor := deps.NewProcessor()
	processor.AddProgressCallback(recorder.Record)

	job, err := processor.Generate(gen.Input, io.MultiWriter(file, hasher))
	if err != nil {
		file.Close()
		return fileRun{}, err
	}

	select {
	case <-job.Done():
	case <-ctx.Done():
		// The run cannot be abandoned mid-write; the file stays open until it ends.
		log.Printf("[TASK] Generation %s outlived its task deadline, waiting for it to finish", gen.PublicID)
	}
	result := job.Result()

	if err := file.Close(); err != nil {
		result.Exceptions = append(result.Exceptions, fmt.Errorf("close output file: %w", err))
	}

	return fileRun{
		result:   result,
		path:     path,
		checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func statusFor(outcome vcard.Outcome) entities.GenerationStatus {
	switch outcome {
	case vcard.OutcomeSuccess:
		return entities.GenerationStatusSucceeded
	case vcard.OutcomePartial:
		return entities.GenerationStatusPartial
	default:
		return entities.GenerationStatusFailed
	}
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = fmt.Sprintf("%+v", err)
	}
	return strings.Join(msgs, "\n\n")
}

// countLines matches how the processor numbers lines: a trailing newline does
// not start another line.
func countLines(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(text, "\n"), "\n") + 1
}
