package middleware

import (
	"database/sql"
	"net/http"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/vcfgen/internal/config"
)

// SessionKeyLastGeneration holds the public ID of the browser's latest generation.
const SessionKeyLastGeneration = "last_generation"

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a configured session manager.
// The sqlDB parameter should be the underlying *sql.DB from GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Sessions) (*SessionManager, error) {
	// Create sessions table if it doesn't exist
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	if cfg.Lifetime > 0 {
		sm.Lifetime = cfg.Lifetime
	}

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// RememberGeneration stores the generation the browser started last.
func (sm *SessionManager) RememberGeneration(r *http.Request, publicID string) {
	sm.Put(r.Context(), SessionKeyLastGeneration, publicID)
}

// LastGeneration returns the generation the browser started last, if any.
func (sm *SessionManager) LastGeneration(r *http.Request) string {
	return sm.GetString(r.Context(), SessionKeyLastGeneration)
}

// ForgetGeneration clears the remembered generation.
func (sm *SessionManager) ForgetGeneration(r *http.Request) {
	sm.Remove(r.Context(), SessionKeyLastGeneration)
}
