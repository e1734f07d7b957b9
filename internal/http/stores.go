package http

import (
	"context"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/vcfgen/internal/database/generations"
	"github.com/mrlokans/vcfgen/internal/entities"
	"github.com/mrlokans/vcfgen/internal/scheduler"
	"github.com/mrlokans/vcfgen/internal/tasks"
)

// This file consolidates the store interfaces used by HTTP controllers.

// GenerationStore provides the generation operations the web UI needs.
type GenerationStore interface {
	Create(gen *entities.Generation) error
	SetTaskID(id uint, taskID string) error
	GetByPublicID(publicID string) (*entities.Generation, error)
	ListRecent(limit int) ([]entities.Generation, error)
	Complete(id uint, c generations.Completion) error
}

// TaskQueue enqueues background work and reports on it.
type TaskQueue interface {
	Enqueue(task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// Scheduler reports when the retention cleanup runs next.
type Scheduler interface {
	GetNextRunTime() *time.Time
}

// Compile-time interface checks
var (
	_ GenerationStore = (*generations.Repository)(nil)
	_ TaskQueue       = (*tasks.Client)(nil)
	_ Scheduler       = (*scheduler.RetentionScheduler)(nil)
)
