// internal/app/system/limits/limits.go
package limits

// Request body size limits for the unauthenticated POST endpoints.
const (
	// MaxAuthBodySize bounds login, forgot-password and reset bodies.
	MaxAuthBodySize = 16 << 10 // 16 KB
)
