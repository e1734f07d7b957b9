package http

import (
	"errors"
	"time"

	"github.com/mrlokans/vcfgen/internal/entities"
	"github.com/mrlokans/vcfgen/internal/generation"
	"github.com/mrlokans/vcfgen/internal/report"
	"github.com/mrlokans/vcfgen/internal/vcard"
)

// GenerationView is what the UI and API show for one generation.
type GenerationView struct {
	vcard.ProgressEvent

	ID             string                    `json:"id"`
	Status         entities.GenerationStatus `json:"status"`
	Phase          generation.Phase          `json:"phase"`
	FileName       string                    `json:"file_name"`
	TotalLines     int                       `json:"total_lines"`
	ProcessedLines int                       `json:"processed_lines"`
	Written        int                       `json:"written"`
	Outcome        vcard.Outcome             `json:"outcome,omitempty"`
	InvalidItems   []vcard.InvalidItem       `json:"invalid_items,omitempty"`
	Summary        *report.Summary           `json:"summary,omitempty"`
	StatusURL      string                    `json:"status_url"`
	DownloadURL    string                    `json:"download_url,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
	CompletedAt    *time.Time                `json:"completed_at,omitempty"`
}

// Percent is the progress as a whole percentage for templates.
func (v GenerationView) Percent() int {
	return int(v.Progress*100 + 0.5)
}

func newGenerationView(gen *entities.Generation, maxInvalid int) GenerationView {
	view := GenerationView{
		ID:             gen.PublicID,
		Status:         gen.Status,
		Phase:          generation.PhaseRunning,
		FileName:       gen.FileName,
		ProgressEvent:  vcard.ProgressEvent{Progress: gen.Progress, Determinate: gen.Determinate},
		TotalLines:     gen.TotalLines,
		ProcessedLines: gen.ProcessedLines,
		Written:        gen.Written,
		StatusURL:      "/generations/" + gen.PublicID,
		CreatedAt:      gen.CreatedAt,
		CompletedAt:    gen.CompletedAt,
	}

	if !gen.Status.IsFinished() {
		return view
	}

	result := resultFromGeneration(gen)
	summary := report.Render(result, gen.FileName, maxInvalid)

	view.Phase = generation.PhaseCompleted
	view.Outcome = result.Outcome()
	view.InvalidItems = result.InvalidItems
	view.Summary = &summary
	if gen.Status != entities.GenerationStatusFailed && gen.OutputPath != "" {
		view.DownloadURL = view.StatusURL + "/download"
	}
	return view
}

// resultFromGeneration rebuilds the run result from its stored form.
func resultFromGeneration(gen *entities.Generation) vcard.GenerateResult {
	result := vcard.GenerateResult{
		TotalLines: gen.TotalLines,
		Processed:  gen.ProcessedLines,
		Written:    gen.Written,
	}
	for _, line := range gen.InvalidLines {
		result.InvalidItems = append(result.InvalidItems, vcard.InvalidItem{Line: line.Line, Content: line.Content})
	}
	if gen.Status == entities.GenerationStatusFailed {
		msg := gen.Error
		if msg == "" {
			msg = "generation failed"
		}
		result.Exceptions = []error{errors.New(msg)}
	}
	return result
}
