// Package generations provides database operations for vCard generation runs.
//
// # Usage
//
//	repo := generations.NewRepository(db)
//	gen := &entities.Generation{Input: text, FileName: "phones.vcf"}
//	err := repo.Create(gen)
package generations

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mrlokans/vcfgen/internal/entities"
)

// Completion carries the final state of a generation run.
type Completion struct {
	Status       entities.GenerationStatus
	TotalLines   int
	Processed    int
	Written      int
	OutputPath   string
	Checksum     string
	Error        string
	InvalidLines []entities.InvalidLine
}

// Repository handles all generation database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new generations repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a pending generation, assigning a public ID when missing.
func (r *Repository) Create(gen *entities.Generation) error {
	if gen.PublicID == "" {
		gen.PublicID = uuid.NewString()
	}
	if gen.Status == "" {
		gen.Status = entities.GenerationStatusPending
	}
	return r.db.Create(gen).Error
}

// GetByID loads a generation without its invalid lines.
func (r *Repository) GetByID(id uint) (*entities.Generation, error) {
	var gen entities.Generation
	if err := r.db.First(&gen, id).Error; err != nil {
		return nil, err
	}
	return &gen, nil
}

// GetByPublicID loads a generation with its invalid lines in line order.
// Returns gorm.ErrRecordNotFound when no generation matches.
func (r *Repository) GetByPublicID(publicID string) (*entities.Generation, error) {
	var gen entities.Generation
	err := r.db.
		Preload("InvalidLines", func(db *gorm.DB) *gorm.DB {
			return db.Order("line ASC")
		}).
		Where("public_id = ?", publicID).
		First(&gen).Error
	if err != nil {
		return nil, err
	}
	return &gen, nil
}

// SetTaskID records the background task that will process the generation.
func (r *Repository) SetTaskID(id uint, taskID string) error {
	return r.db.Model(&entities.Generation{}).Where("id = ?", id).
		Update("task_id", taskID).Error
}

// MarkRunning flips a generation into the running state.
func (r *Repository) MarkRunning(id uint, totalLines int) error {
	return r.db.Model(&entities.Generation{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          entities.GenerationStatusRunning,
			"total_lines":     totalLines,
			"processed_lines": 0,
			"progress":        0,
			"determinate":     false,
			"error":           "",
			"completed_at":    nil,
		}).Error
}

// UpdateProgress stores the latest progress notification.
func (r *Repository) UpdateProgress(id uint, processed int, progress float64, determinate bool) error {
	return r.db.Model(&entities.Generation{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed_lines": processed,
			"progress":        progress,
			"determinate":     determinate,
		}).Error
}

// Complete stores the outcome of a run together with its invalid lines.
func (r *Repository) Complete(id uint, c Completion) error {
	now := time.Now()
	return r.db.Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{
			"status":          c.Status,
			"total_lines":     c.TotalLines,
			"processed_lines": c.Processed,
			"written":         c.Written,
			"output_path":     c.OutputPath,
			"checksum":        c.Checksum,
			"error":           c.Error,
			"completed_at":    &now,
		}
		// A failed run keeps the last progress it recorded.
		if c.Status != entities.GenerationStatusFailed {
			fields["progress"] = 1
			fields["determinate"] = true
		}
		err := tx.Model(&entities.Generation{}).Where("id = ?", id).Updates(fields).Error
		if err != nil {
			return err
		}

		if err := tx.Where("generation_id = ?", id).Delete(&entities.InvalidLine{}).Error; err != nil {
			return err
		}
		if len(c.InvalidLines) == 0 {
			return nil
		}

		lines := make([]entities.InvalidLine, len(c.InvalidLines))
		for i, l := range c.InvalidLines {
			lines[i] = entities.InvalidLine{GenerationID: id, Line: l.Line, Content: l.Content}
		}
		return tx.CreateInBatches(lines, 100).Error
	})
}

// ListRecent returns the newest generations first.
func (r *Repository) ListRecent(limit int) ([]entities.Generation, error) {
	if limit <= 0 {
		limit = 20
	}
	var gens []entities.Generation
	err := r.db.Order("created_at DESC").Limit(limit).Find(&gens).Error
	return gens, err
}

// DeleteOlderThan removes finished generations created before cutoff and
// returns the deleted rows so callers can remove their output files.
func (r *Repository) DeleteOlderThan(cutoff time.Time) ([]entities.Generation, error) {
	var old []entities.Generation
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("created_at < ? AND status IN ?", cutoff, []entities.GenerationStatus{
			entities.GenerationStatusSucceeded,
			entities.GenerationStatusPartial,
			entities.GenerationStatusFailed,
		}).Find(&old).Error
		if err != nil || len(old) == 0 {
			return err
		}

		ids := make([]uint, len(old))
		for i, g := range old {
			ids[i] = g.ID
		}
		if err := tx.Where("generation_id IN ?", ids).Delete(&entities.InvalidLine{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&entities.Generation{}).Error
	})
	if err != nil {
		return nil, err
	}
	return old, nil
}
