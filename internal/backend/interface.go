package backend

import (
	"context"
	"time"

	"fintrax/internal/sources"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the backend instance and optional cleanup function
type Result struct {
	Backend sources.Backend
	Type    Type
	Cleanup CleanupFunc
}

// Close runs the cleanup function, if any.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Ping checks the backend when it supports health checks.
func (r *Result) Ping(ctx context.Context) error {
	if p, ok := r.Backend.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, cfg Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// REST specific
	BaseURL string
	Token   string
	Timeout time.Duration

	// SQLite specific
	SQLiteDBPath string

	// Memory specific; empty means start with no data
	SeedFile string
}

// Type names a data backend.
type Type string

const (
	REST   Type = "rest"
	SQLite Type = "sqlite"
	Memory Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case REST, SQLite, Memory:
		return true
	default:
		return false
	}
}
