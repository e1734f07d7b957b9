package audit

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	auditRepo "github.com/mrlokans/vcfgen/internal/database/audit"
	"github.com/mrlokans/vcfgen/internal/entities"
	"github.com/mrlokans/vcfgen/internal/vcard"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	repo := auditRepo.NewRepository(db)
	svc := NewService(repo)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return svc, db
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		EventType: entities.AuditEventGenerate,
		Action:    "test_generate",
		Status:    entities.AuditStatusSuccess,
	}

	require.NoError(t, svc.Log(event))

	var saved entities.AuditEvent
	require.NoError(t, db.First(&saved, event.ID).Error)
	assert.Equal(t, "test_generate", saved.Action)
}

func TestService_LogGeneration(t *testing.T) {
	tests := []struct {
		name     string
		result   vcard.GenerateResult
		status   entities.AuditStatus
		errorMsg string
	}{
		{
			name:   "success",
			result: vcard.GenerateResult{TotalLines: 2, Processed: 2, Written: 2},
			status: entities.AuditStatusSuccess,
		},
		{
			name: "partial",
			result: vcard.GenerateResult{
				TotalLines:   2,
				Processed:    2,
				Written:      1,
				InvalidItems: []vcard.InvalidItem{{Line: 2, Content: "bad"}},
			},
			status: entities.AuditStatusPartial,
		},
		{
			name: "failure",
			result: vcard.GenerateResult{
				TotalLines: 2,
				Processed:  1,
				Exceptions: []error{errors.New("disk full")},
			},
			status:   entities.AuditStatusFailed,
			errorMsg: "disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := setupTestService(t)

			svc.LogGeneration("web_generate", "gen-"+tt.name, tt.result)
			svc.Wait()

			var event entities.AuditEvent
			require.NoError(t, db.Where("entity_id = ?", "gen-"+tt.name).First(&event).Error)
			assert.Equal(t, entities.AuditEventGenerate, event.EventType)
			assert.Equal(t, "web_generate", event.Action)
			assert.Equal(t, tt.status, event.Status)
			assert.Equal(t, tt.errorMsg, event.ErrorMsg)
			assert.Contains(t, event.Metadata, `"written"`)
		})
	}
}

func TestService_LogCleanup(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogCleanup(3, 7, nil)
	svc.LogCleanup(0, 0, errors.New("locked"))
	svc.Wait()

	var events []entities.AuditEvent
	require.NoError(t, db.Where("event_type = ?", entities.AuditEventCleanup).Order("id").Find(&events).Error)
	require.Len(t, events, 2)

	statuses := []entities.AuditStatus{events[0].Status, events[1].Status}
	assert.ElementsMatch(t, []entities.AuditStatus{entities.AuditStatusSuccess, entities.AuditStatusFailed}, statuses)
}

func TestService_LogCleanQuotes(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogCleanQuotes("127.0.0.1", 20, 16)
	svc.Wait()

	var event entities.AuditEvent
	require.NoError(t, db.Where("event_type = ?", entities.AuditEventCleanQuotes).First(&event).Error)
	assert.Equal(t, "127.0.0.1", event.IPAddress)
	assert.Equal(t, "Cleaned 20 bytes into 16 bytes", event.Description)
}

func TestService_GetEventsForEntity(t *testing.T) {
	svc, _ := setupTestService(t)

	svc.LogGeneration("cli_generate", "one", vcard.GenerateResult{})
	svc.LogGeneration("cli_generate", "two", vcard.GenerateResult{})
	svc.Wait()

	events, err := svc.GetEventsForEntity("one")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "one", events[0].EntityID)
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, _ := setupTestService(t)

	require.NoError(t, svc.Log(&entities.AuditEvent{
		EventType: entities.AuditEventGenerate,
		Action:    "old",
		Status:    entities.AuditStatusSuccess,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}))
	require.NoError(t, svc.Log(&entities.AuditEvent{
		EventType: entities.AuditEventGenerate,
		Action:    "new",
		Status:    entities.AuditStatusSuccess,
	}))

	deleted, err := svc.DeleteOldEvents(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, total, err := svc.GetEvents("", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "new", events[0].Action)
}

func TestService_Nil(t *testing.T) {
	var svc *Service

	assert.NotPanics(t, func() {
		svc.LogGeneration("web_generate", "x", vcard.GenerateResult{})
		svc.LogCleanQuotes("", 0, 0)
		svc.Wait()
	})
	deleted, err := svc.DeleteOldEvents(time.Hour)
	assert.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "this is...", truncate("this is a long string", 10))
}
