// Package middleware holds the Gin middleware shared by the web UI:
// security headers, CSRF protection for form posts and cookie sessions
// backed by SQLite.
//
// Order matters when installing them:
//
//	router.Use(middleware.SecurityHeadersMiddleware())
//	router.Use(middleware.CSRFMiddleware(secret, secure))
//	router.Use(sessions.GinLoadAndSave())
//
// CSRF runs before the session middleware so the session context survives
// the request replacement gorilla/csrf performs.
package middleware
