package tasks

import (
	"log"
	"math"
	"time"
)

// ProgressStore receives throttled progress updates.
type ProgressStore interface {
	UpdateProgress(id uint, processed int, progress float64, determinate bool) error
}

// progressRecorder forwards processor progress to the database at most once
// per interval. Mode changes and completion are always written. It is only
// called from the processor's worker goroutine.
type progressRecorder struct {
	store    ProgressStore
	id       uint
	total    int
	interval time.Duration

	lastWrite       time.Time
	lastDeterminate bool
	now             func() time.Time
}

func (r *progressRecorder) Record(progress float64, determinate bool) {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	t := now()

	modeChanged := determinate != r.lastDeterminate
	if !r.lastWrite.IsZero() && !modeChanged && progress < 1 && t.Sub(r.lastWrite) < r.interval {
		return
	}

	processed := 0
	if determinate {
		processed = int(math.Round(progress * float64(r.total)))
	}
	if err := r.store.UpdateProgress(r.id, processed, progress, determinate); err != nil {
		log.Printf("[TASK ERROR] Failed to store progress for generation %d: %v", r.id, err)
		return
	}
	r.lastWrite = t
	r.lastDeterminate = determinate
}
