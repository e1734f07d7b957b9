package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/vcfgen/internal/entities"
)

// GenerationPurger deletes finished generations created before a cutoff.
type GenerationPurger interface {
	DeleteOlderThan(cutoff time.Time) ([]entities.Generation, error)
}

// AuditEventCleaner provides the ability to delete old audit events.
type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// CleanupAuditor records cleanup runs.
type CleanupAuditor interface {
	LogCleanup(generationsRemoved, eventsRemoved int64, err error)
}

// CleanupGenerationsTask removes generations, their output files and audit
// events older than MaxAgeHours.
type CleanupGenerationsTask struct {
	MaxAgeHours int `json:"max_age_hours"`
}

// Config returns the queue configuration for cleanup tasks.
func (t CleanupGenerationsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_generations",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupDeps holds what the cleanup processor needs. Events and Auditor are optional.
type CleanupDeps struct {
	Generations GenerationPurger
	Events      AuditEventCleaner
	Auditor     CleanupAuditor
}

// CleanupGenerationsProcessor creates a processor function for CleanupGenerationsTask.
func CleanupGenerationsProcessor(deps CleanupDeps) backlite.QueueProcessor[CleanupGenerationsTask] {
	return func(ctx context.Context, task CleanupGenerationsTask) error {
		if deps.Generations == nil {
			return fmt.Errorf("generation purger not configured")
		}

		maxAgeHours := task.MaxAgeHours
		if maxAgeHours <= 0 {
			maxAgeHours = 7 * 24
		}
		maxAge := time.Duration(maxAgeHours) * time.Hour

		removed, err := deps.Generations.DeleteOlderThan(time.Now().Add(-maxAge))
		if err != nil {
			err = fmt.Errorf("cleanup generations: %w", err)
			if deps.Auditor != nil {
				deps.Auditor.LogCleanup(0, 0, err)
			}
			return err
		}

		for _, gen := range removed {
			if gen.OutputPath == "" {
				continue
			}
			if err := os.Remove(gen.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Printf("[TASK ERROR] Failed to remove %s: %v", gen.OutputPath, err)
			}
		}

		var eventsRemoved int64
		if deps.Events != nil {
			eventsRemoved, err = deps.Events.DeleteOldEvents(maxAge)
			if err != nil {
				err = fmt.Errorf("cleanup audit events: %w", err)
			}
		}

		if deps.Auditor != nil {
			deps.Auditor.LogCleanup(int64(len(removed)), eventsRemoved, err)
		}
		if err != nil {
			return err
		}

		log.Printf("[TASK] Cleaned up %d generations and %d audit events older than %d hours",
			len(removed), eventsRemoved, maxAgeHours)
		return nil
	}
}

// NewCleanupGenerationsQueue creates a backlite queue for cleanup tasks.
func NewCleanupGenerationsQueue(deps CleanupDeps) backlite.Queue {
	return backlite.NewQueue(CleanupGenerationsProcessor(deps))
}
