package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/vcfgen/internal/database/audit"
	"github.com/mrlokans/vcfgen/internal/entities"
	"github.com/mrlokans/vcfgen/internal/vcard"
)

// Service provides high-level audit logging functionality.
// A nil *Service is valid and records nothing.
type Service struct {
	repo    *audit.Repository
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	if s == nil {
		return nil
	}
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	if s == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until every event handed to LogAsync has been written.
func (s *Service) Wait() {
	if s == nil {
		return
	}
	s.pending.Wait()
}

// LogGeneration records the outcome of a finished generation.
func (s *Service) LogGeneration(action, generationID string, result vcard.GenerateResult) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventGenerate,
		Action:      action,
		Description: fmt.Sprintf("Wrote %d contacts from %d lines", result.Written, result.TotalLines),
		EntityID:    generationID,
		Status:      statusFor(result.Outcome()),
	}

	metadata := map[string]any{
		"total_lines":   result.TotalLines,
		"processed":     result.Processed,
		"written":       result.Written,
		"skipped":       result.Skipped,
		"invalid_count": len(result.InvalidItems),
		"exceptions":    len(result.Exceptions),
	}
	if mdBytes, e := json.Marshal(metadata); e == nil {
		event.Metadata = string(mdBytes)
	}

	if len(result.Exceptions) > 0 {
		event.ErrorMsg = truncate(result.Exceptions[0].Error(), 500)
	}

	s.LogAsync(event)
}

// LogCleanup records a retention cleanup run.
func (s *Service) LogCleanup(generationsRemoved, eventsRemoved int64, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventCleanup,
		Action:      "retention_cleanup",
		Description: fmt.Sprintf("Removed %d generations and %d audit events", generationsRemoved, eventsRemoved),
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogCleanQuotes records a call to the quote cleaning endpoint.
func (s *Service) LogCleanQuotes(ipAddr string, inputLen, outputLen int) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventCleanQuotes,
		Action:      "api_clean_quotes",
		Description: fmt.Sprintf("Cleaned %d bytes into %d bytes", inputLen, outputLen),
		IPAddress:   ipAddr,
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events. An empty eventType matches all.
func (s *Service) GetEvents(eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	if s == nil {
		return nil, 0, nil
	}
	return s.repo.GetEvents(eventType, limit, offset)
}

// GetEventsForEntity returns the events recorded for one generation.
func (s *Service) GetEventsForEntity(generationID string) ([]entities.AuditEvent, error) {
	if s == nil {
		return nil, nil
	}
	return s.repo.GetEventsForEntity(generationID)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func statusFor(outcome vcard.Outcome) entities.AuditStatus {
	switch outcome {
	case vcard.OutcomeSuccess:
		return entities.AuditStatusSuccess
	case vcard.OutcomePartial:
		return entities.AuditStatusPartial
	default:
		return entities.AuditStatusFailed
	}
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
