package dictionary

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/valpere/bntran/internal/lexicon"
)

//go:embed dictionary.schema.json
var schemaJSON string

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("dictionary.schema.json", strings.NewReader(schemaJSON)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("dictionary.schema.json")
	})
	return compiledSchema, compileErr
}

// ErrInvalidDocument is returned when a dictionary file is not valid JSON or
// does not match the dictionary schema.
var ErrInvalidDocument = errors.New("invalid dictionary document")

// Decode parses and validates a flat dictionary document. Keys are
// normalized; when two keys normalize alike the later one wins. Entries with
// a blank key or value are skipped, not rejected.
func Decode(data []byte) (map[string]string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return map[string]string{}, nil
	}

	var value any
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var raw map[string]string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if lexicon.IsBlank(k) || strings.TrimSpace(v) == "" {
			continue
		}
		out[lexicon.Normalize(k)] = v
	}
	return out, nil
}

// Encode renders entries as a 2-space indented document with non-ASCII
// text written as is. Keys come out sorted.
func Encode(entries map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if entries == nil {
		entries = map[string]string{}
	}
	if err := enc.Encode(entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSONFile is a dictionary kept in a single JSON document on disk.
type JSONFile struct {
	path   string
	logger zerolog.Logger
	mu     sync.Mutex
}

func NewJSONFile(path string, logger zerolog.Logger) *JSONFile {
	return &JSONFile{path: path, logger: logger}
}

func (f *JSONFile) Path() string {
	return f.path
}

func (f *JSONFile) Load(ctx context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *JSONFile) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dictionary %s: %w", f.path, err)
	}

	entries, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode dictionary %s: %w", f.path, err)
	}
	return entries, nil
}

// Merge overlays entries on the document and rewrites it atomically. A
// corrupt existing document is logged and replaced by entries alone.
func (f *JSONFile) Merge(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	existing, err := f.read()
	if err != nil {
		if !errors.Is(err, ErrInvalidDocument) {
			return err
		}
		f.logger.Warn().Err(err).Str("path", f.path).Msg("replacing corrupt dictionary")
		existing = map[string]string{}
	}

	added := 0
	for k, v := range entries {
		if lexicon.IsBlank(k) || strings.TrimSpace(v) == "" {
			continue
		}
		key := lexicon.Normalize(k)
		if _, ok := existing[key]; !ok {
			added++
		}
		existing[key] = v
	}

	data, err := Encode(existing)
	if err != nil {
		return fmt.Errorf("encode dictionary: %w", err)
	}
	if err := writeAtomic(f.path, data); err != nil {
		return err
	}

	f.logger.Info().
		Str("path", f.path).
		Int("entries", len(existing)).
		Int("added", added).
		Msg("dictionary saved")
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dictionary dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace dictionary: %w", err)
	}
	return nil
}

// Delete removes the entry for source and reports whether it existed.
func (f *JSONFile) Delete(ctx context.Context, source string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, err := f.read()
	if err != nil {
		return false, err
	}
	key := lexicon.Normalize(source)
	if _, ok := existing[key]; !ok {
		return false, nil
	}
	delete(existing, key)

	data, err := Encode(existing)
	if err != nil {
		return false, fmt.Errorf("encode dictionary: %w", err)
	}
	return true, writeAtomic(f.path, data)
}

// Clear empties the document and returns the number of entries removed.
func (f *JSONFile) Clear(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, err := f.read()
	if err != nil && !errors.Is(err, ErrInvalidDocument) {
		return 0, err
	}
	if err := writeAtomic(f.path, []byte("{}\n")); err != nil {
		return 0, err
	}
	return int64(len(existing)), nil
}

// Close is a no-op; the document is rewritten on every change.
func (f *JSONFile) Close() error {
	return nil
}
