package exchange

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/mesh-intelligence/gourmet/internal/record"
	"github.com/mesh-intelligence/gourmet/pkg/types"
)

// zstdMagic opens every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var (
	errNotObject  = errors.New("not an object")
	errNoApproval = errors.New("import needs a confirmer")
)

// maxLine bounds one JSON Lines record; photos are inlined as data URLs.
const maxLine = 64 << 20

// ImportOutcome reports what an import wrote. On a mid-batch failure it
// counts the records already added.
type ImportOutcome struct {
	BatchID  uuid.UUID
	Imported int
	IDs      []int64
}

// Import parses r, asks confirm for approval and adds every object as a new
// record. The id member of each object is dropped; every other member is
// stored as given. Every object must read back as a record. Nothing is
// written when parsing fails (ErrParse) or the user declines (ErrDeclined).
// Insertions are not atomic as a batch.
func (s *Service) Import(ctx context.Context, r io.Reader, opts Options, confirm Confirmer) (ImportOutcome, error) {
	if confirm == nil {
		return ImportOutcome{}, errNoApproval
	}
	format := opts.Format.orDefault()
	if !format.Valid() {
		return ImportOutcome{}, fmt.Errorf("unknown import format %q", opts.Format)
	}

	data, err := readAll(r)
	if err != nil {
		return ImportOutcome{}, err
	}

	var items []map[string]json.RawMessage
	if format == FormatJSONL {
		items, err = parseLines(data)
	} else {
		items, err = parseArray(data)
	}
	if err != nil {
		return ImportOutcome{}, err
	}

	if !confirm.Confirm(ctx, fmt.Sprintf("Import %d records?", len(items))) {
		return ImportOutcome{}, types.ErrDeclined
	}

	batch, err := s.newID()
	if err != nil {
		return ImportOutcome{}, fmt.Errorf("generating batch id: %w", err)
	}
	outcome := ImportOutcome{BatchID: batch, IDs: make([]int64, 0, len(items))}
	log := s.log.With().Str("batch", batch.String()).Logger()

	for i, item := range items {
		delete(item, "id")
		body, err := json.Marshal(item)
		if err != nil {
			return outcome, fmt.Errorf("encoding element %d: %w", i, err)
		}
		id, err := s.sink.Add(ctx, body)
		if err != nil {
			log.Error().Err(err).Int("imported", outcome.Imported).Msg("import interrupted")
			return outcome, fmt.Errorf("importing element %d: %w", i, err)
		}
		outcome.IDs = append(outcome.IDs, id)
		outcome.Imported++
	}

	log.Info().Int("imported", outcome.Imported).Msg("import complete")
	return outcome, nil
}

// readAll drains r, decompressing zstd input.
func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading import: %w", err)
	}
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("starting decompression: %w", err)
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing: %v", types.ErrParse, err)
	}
	return plain, nil
}

// parseArray decodes a JSON array whose elements are all objects.
func parseArray(data []byte) ([]map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", types.ErrParse)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array: %v", types.ErrParse, err)
	}
	items := make([]map[string]json.RawMessage, 0, len(elems))
	for i, elem := range elems {
		item, err := parseObject(elem)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", types.ErrParse, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// parseLines decodes JSON Lines. Blank lines are ignored; any other line
// must be an object.
func parseLines(data []byte) ([]map[string]json.RawMessage, error) {
	items := []map[string]json.RawMessage{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		item, err := parseObject(text)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", types.ErrParse, line, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: line %d: %v", types.ErrParse, line+1, err)
	}
	return items, nil
}

// parseObject decodes one backup element. It must be an object whose known
// members carry the types a stored record uses.
func parseObject(raw []byte) (map[string]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, errNotObject
	}
	var item map[string]json.RawMessage
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, err
	}
	if err := record.Check(raw); err != nil {
		return nil, err
	}
	return item, nil
}
