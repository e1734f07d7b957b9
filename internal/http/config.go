package http

import (
	"github.com/mrlokans/vcfgen/internal/audit"
	"github.com/mrlokans/vcfgen/internal/database"
	"github.com/mrlokans/vcfgen/internal/middleware"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database    *database.Database
	Generations GenerationStore
	Auditor     *audit.Service

	// Task queue (optional; generation is unavailable without it)
	TaskQueue TaskQueue

	// Retention scheduler (optional; reported by /health)
	Scheduler Scheduler

	// Sessions and CSRF (optional)
	SessionManager *middleware.SessionManager
	CSRFSecret     []byte
	SecureCookies  bool

	// Generation settings
	DefaultFileName string
	MaxInvalidShown int
	MaxInputBytes   int64

	// Application info
	Version string
}
