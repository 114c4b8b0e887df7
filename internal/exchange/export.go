package exchange

import (
	"context"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

// ExportResult describes a finished export.
type ExportResult struct {
	Count  int
	Format Format
}

// Export writes every record, id and createdAt included, to w.
func (s *Service) Export(ctx context.Context, w io.Writer, opts Options) (ExportResult, error) {
	format := opts.Format.orDefault()
	if !format.Valid() {
		return ExportResult{}, fmt.Errorf("unknown export format %q", opts.Format)
	}

	records, err := s.source.All(ctx)
	if err != nil {
		return ExportResult{}, fmt.Errorf("exporting: %w", err)
	}

	out := w
	var zw *zstd.Encoder
	if opts.Compress {
		zw, err = zstd.NewWriter(w)
		if err != nil {
			return ExportResult{}, fmt.Errorf("starting compression: %w", err)
		}
		out = zw
	}

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	switch format {
	case FormatJSONL:
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return ExportResult{}, fmt.Errorf("writing record %d: %w", rec.ID, err)
			}
		}
	default:
		if err := enc.Encode(records); err != nil {
			return ExportResult{}, fmt.Errorf("writing records: %w", err)
		}
	}

	if zw != nil {
		if err := zw.Close(); err != nil {
			return ExportResult{}, fmt.Errorf("finishing compression: %w", err)
		}
	}

	s.log.Info().Int("count", len(records)).Str("format", string(format)).
		Bool("compressed", opts.Compress).Msg("export complete")
	return ExportResult{Count: len(records), Format: format}, nil
}
