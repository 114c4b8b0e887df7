// Package exchange moves records in and out of the store as backup files.
// Exports are a JSON array (or JSON Lines) of full records, optionally zstd
// compressed. Imports add every object as a new record under a fresh id.
package exchange

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/gourmet/pkg/types"
)

// Format selects the backup encoding.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
)

// DefaultPrefix is the backup file name prefix.
const DefaultPrefix = "gourmet_log_backup"

// zstdExt is appended to compressed backup names.
const zstdExt = ".zst"

// Valid reports whether f is a known format. Empty means FormatJSON.
func (f Format) Valid() bool {
	switch f {
	case "", FormatJSON, FormatJSONL:
		return true
	}
	return false
}

func (f Format) orDefault() Format {
	if f == "" {
		return FormatJSON
	}
	return f
}

// FormatFromPath picks the format from a file name: .jsonl (optionally
// followed by .zst) is JSON Lines, anything else is JSON.
func FormatFromPath(path string) Format {
	name := strings.TrimSuffix(strings.ToLower(filepath.Base(path)), zstdExt)
	if filepath.Ext(name) == ".jsonl" {
		return FormatJSONL
	}
	return FormatJSON
}

// CompressedPath reports whether a file name carries the .zst suffix.
func CompressedPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), zstdExt)
}

// Options control one export or import.
type Options struct {
	Format   Format
	Compress bool // export only; imports detect compression
}

// Source lists the records to export.
type Source interface {
	All(ctx context.Context) ([]*types.Record, error)
}

// Sink stores imported documents under fresh ids.
type Sink interface {
	Add(ctx context.Context, body []byte) (int64, error)
}

// Confirmer asks the user to approve an import before anything is written.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// Service exports from a Source and imports into a Sink.
type Service struct {
	source Source
	sink   Sink
	newID  func() (uuid.UUID, error)
	log    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService returns a Service reading records from source and adding
// imported documents to sink.
func NewService(source Source, sink Sink, opts ...Option) *Service {
	s := &Service{
		source: source,
		sink:   sink,
		newID:  uuid.NewV7,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
