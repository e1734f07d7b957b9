package http

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mikestefanello/backlite"
	"gorm.io/gorm"

	"github.com/mrlokans/vcfgen/internal/database/generations"
	"github.com/mrlokans/vcfgen/internal/entities"
)

type memGenerationStore struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*entities.Generation
	err    error
}

func newMemGenerationStore() *memGenerationStore {
	return &memGenerationStore{byID: make(map[uint]*entities.Generation)}
}

func (s *memGenerationStore) Create(gen *entities.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.nextID++
	gen.ID = s.nextID
	if gen.PublicID == "" {
		gen.PublicID = uuid.NewString()
	}
	if gen.Status == "" {
		gen.Status = entities.GenerationStatusPending
	}
	cp := *gen
	s.byID[gen.ID] = &cp
	return nil
}

func (s *memGenerationStore) SetTaskID(id uint, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[id].TaskID = taskID
	return nil
}

func (s *memGenerationStore) GetByPublicID(publicID string) (*entities.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, g := range s.byID {
		if g.PublicID == publicID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memGenerationStore) ListRecent(limit int) ([]entities.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gens := make([]entities.Generation, 0, len(s.byID))
	for _, g := range s.byID {
		gens = append(gens, *g)
	}
	sort.Slice(gens, func(i, j int) bool { return gens[i].ID > gens[j].ID })
	if len(gens) > limit {
		gens = gens[:limit]
	}
	return gens, nil
}

func (s *memGenerationStore) Complete(id uint, c generations.Completion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.byID[id]
	g.Status = c.Status
	g.TotalLines = c.TotalLines
	g.ProcessedLines = c.Processed
	g.Written = c.Written
	g.OutputPath = c.OutputPath
	g.Checksum = c.Checksum
	g.Error = c.Error
	if c.Status != entities.GenerationStatusFailed {
		g.Progress = 1
		g.Determinate = true
	}
	g.InvalidLines = c.InvalidLines
	return nil
}

// put stores gen as-is, for tests that need a specific state.
func (s *memGenerationStore) put(gen entities.Generation) *entities.Generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	gen.ID = s.nextID
	if gen.PublicID == "" {
		gen.PublicID = uuid.NewString()
	}
	s.byID[gen.ID] = &gen
	return &gen
}

type fakeTaskQueue struct {
	mu       sync.Mutex
	enqueued []backlite.Task
	err      error
	statuses map[string]backlite.TaskStatus
}

func (q *fakeTaskQueue) Enqueue(task backlite.Task) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.enqueued = append(q.enqueued, task)
	return "task-1", nil
}

func (q *fakeTaskQueue) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.statuses == nil {
		return backlite.TaskStatusNotFound, errors.New("queue unavailable")
	}
	status, ok := q.statuses[taskID]
	if !ok {
		return backlite.TaskStatusNotFound, nil
	}
	return status, nil
}
