// Package report turns a generation result into the summary shown to the
// user by the CLI and the web UI.
package report

import (
	"fmt"
	"strings"

	"github.com/mrlokans/vcfgen/internal/vcard"
)

// DefaultMaxInvalid caps how many invalid lines are listed in a summary.
const DefaultMaxInvalid = 200

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

const (
	titleSuccess        = "VCF file generated"
	titlePartialFailure = "VCF file partially generated"
	titleFailure        = "VCF file generation failed"

	messageSuccess        = "Exported file to “%s”."
	messagePartialFailure = "The following lines could not be recognized:\n%s\n\nExported file to “%s”, without the lines above."
	messageFailure        = "An unexpected error occurred while generating the VCF file. The file may be incomplete.\n\n%s"

	invalidItemTemplate = "Line %d: %s"
	truncatedTemplate   = "%s ... and %d more."
)

// Summary is a rendered result.
type Summary struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Render builds the summary for result. displayPath names the written file.
// At most maxInvalid invalid lines are listed; maxInvalid <= 0 uses
// DefaultMaxInvalid.
func Render(result vcard.GenerateResult, displayPath string, maxInvalid int) Summary {
	if maxInvalid <= 0 {
		maxInvalid = DefaultMaxInvalid
	}

	switch result.Outcome() {
	case vcard.OutcomeFailure:
		details := make([]string, 0, len(result.Exceptions))
		for _, err := range result.Exceptions {
			details = append(details, fmt.Sprintf("%+v", err))
		}
		return Summary{
			Level:   LevelError,
			Title:   titleFailure,
			Message: fmt.Sprintf(messageFailure, strings.Join(details, "\n\n")),
		}

	case vcard.OutcomePartial:
		return Summary{
			Level:   LevelWarning,
			Title:   titlePartialFailure,
			Message: fmt.Sprintf(messagePartialFailure, InvalidList(result.InvalidItems, maxInvalid), displayPath),
		}

	default:
		return Summary{
			Level:   LevelInfo,
			Title:   titleSuccess,
			Message: fmt.Sprintf(messageSuccess, displayPath),
		}
	}
}

// InvalidList formats up to limit items and notes how many were left out.
// limit <= 0 uses DefaultMaxInvalid.
func InvalidList(items []vcard.InvalidItem, limit int) string {
	if limit <= 0 {
		limit = DefaultMaxInvalid
	}
	shown := items
	if len(shown) > limit {
		shown = shown[:limit]
	}

	parts := make([]string, 0, len(shown))
	for _, item := range shown {
		parts = append(parts, fmt.Sprintf(invalidItemTemplate, item.Line, item.Content))
	}
	content := strings.Join(parts, ", ")

	if ignored := len(items) - len(shown); ignored > 0 {
		content = fmt.Sprintf(truncatedTemplate, content, ignored)
	}
	return content
}
