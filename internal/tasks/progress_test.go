package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type progressCall struct {
	processed   int
	progress    float64
	determinate bool
}

type progressLog struct {
	calls []progressCall
}

func (l *progressLog) UpdateProgress(id uint, processed int, progress float64, determinate bool) error {
	l.calls = append(l.calls, progressCall{processed, progress, determinate})
	return nil
}

func TestProgressRecorder_Throttles(t *testing.T) {
	clock := time.Unix(0, 0)
	store := &progressLog{}
	r := &progressRecorder{
		store:    store,
		id:       1,
		total:    10,
		interval: time.Second,
		now:      func() time.Time { return clock },
	}

	r.Record(0, false)  // first call is always written
	r.Record(0.1, true) // mode change
	r.Record(0.2, true) // throttled
	clock = clock.Add(2 * time.Second)
	r.Record(0.5, true) // interval elapsed
	r.Record(0.6, true) // throttled
	r.Record(1, true)   // completion

	assert.Equal(t, []progressCall{
		{0, 0, false},
		{1, 0.1, true},
		{5, 0.5, true},
		{10, 1, true},
	}, store.calls)
}
