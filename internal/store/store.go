// Package store is the SQLite translation memory: the custom dictionary plus
// a history of translation sessions.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/valpere/bntran/internal"
	"github.com/valpere/bntran/internal/lexicon"
)

// ServiceLearned marks entries recorded from provider output, as opposed to
// ones added by hand.
const (
	ServiceLearned = "learned"
	ServiceManual  = "manual"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers; one connection keeps busy errors away.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS custom_dictionary (
		source_key TEXT PRIMARY KEY,
		translated_text TEXT NOT NULL,
		service_used TEXT NOT NULL DEFAULT 'learned',
		usage_count INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		last_used TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		input_file TEXT NOT NULL DEFAULT '',
		output_file TEXT NOT NULL DEFAULT '',
		columns TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		total_items INTEGER NOT NULL DEFAULT 0,
		unique_keys INTEGER NOT NULL DEFAULT 0,
		processed INTEGER NOT NULL DEFAULT 0,
		cache_hits INTEGER NOT NULL DEFAULT 0,
		api_calls INTEGER NOT NULL DEFAULT 0,
		fallbacks INTEGER NOT NULL DEFAULT 0,
		learned INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_dictionary_last_used ON custom_dictionary(last_used);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Load returns the whole dictionary keyed by normalized source text.
func (s *Store) Load(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source_key, translated_text FROM custom_dictionary`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Merge upserts learned entries in one transaction. Keys already present get
// the new translation and a bumped usage count.
func (s *Store) Merge(ctx context.Context, entries map[string]string) error {
	return s.upsert(ctx, entries, ServiceLearned)
}

// Add stores a single hand-made entry.
func (s *Store) Add(ctx context.Context, source, translation string) error {
	if lexicon.IsBlank(source) || strings.TrimSpace(translation) == "" {
		return fmt.Errorf("source and translation must not be empty")
	}
	return s.upsert(ctx, map[string]string{source: translation}, ServiceManual)
}

func (s *Store) upsert(ctx context.Context, entries map[string]string, service string) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO custom_dictionary (source_key, translated_text, service_used, usage_count, created_at, last_used)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(source_key) DO UPDATE SET
			translated_text = excluded.translated_text,
			service_used = excluded.service_used,
			usage_count = custom_dictionary.usage_count + 1,
			last_used = excluded.last_used`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for k, v := range entries {
		if lexicon.IsBlank(k) || strings.TrimSpace(v) == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, lexicon.Normalize(k), v, service, now, now); err != nil {
			return fmt.Errorf("upsert %q: %w", k, err)
		}
	}
	return tx.Commit()
}

// Entry is a row from the custom_dictionary table.
type Entry struct {
	SourceKey   string
	Translation string
	ServiceUsed string
	UsageCount  int
	CreatedAt   time.Time
	LastUsed    time.Time
}

// DictionaryStats summarises the custom dictionary.
type DictionaryStats struct {
	TotalEntries   int
	LearnedEntries int
	ManualEntries  int
	TotalUsage     int
}

// List returns all entries ordered by most recently used.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_key, translated_text, service_used, usage_count, created_at, last_used
		 FROM custom_dictionary ORDER BY last_used DESC, source_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.SourceKey, &e.Translation, &e.ServiceUsed, &e.UsageCount, &e.CreatedAt, &e.LastUsed); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Stats(ctx context.Context) (*DictionaryStats, error) {
	stats := &DictionaryStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN service_used = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN service_used = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(usage_count), 0)
		FROM custom_dictionary`, ServiceLearned, ServiceManual).Scan(
		&stats.TotalEntries,
		&stats.LearnedEntries,
		&stats.ManualEntries,
		&stats.TotalUsage,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Delete removes the entry for source. It reports whether a row existed.
func (s *Store) Delete(ctx context.Context, source string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM custom_dictionary WHERE source_key = ?`, lexicon.Normalize(source))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Clear removes every dictionary entry.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM custom_dictionary`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Lookup returns the stored translation of text. With threshold > 0 and no
// exact match, the entry whose key is most similar (at least threshold, in
// [0, 1]) is returned instead, along with its key.
func (s *Store) Lookup(ctx context.Context, text string, threshold float64) (key, translation string, found bool, err error) {
	normalized := lexicon.Normalize(text)

	err = s.db.QueryRowContext(ctx,
		`SELECT translated_text FROM custom_dictionary WHERE source_key = ?`, normalized).Scan(&translation)
	if err == nil {
		return normalized, translation, true, nil
	}
	if err != sql.ErrNoRows {
		return "", "", false, err
	}
	if threshold <= 0 {
		return "", "", false, nil
	}

	const maxFuzzyRunes = 200
	if len([]rune(normalized)) > maxFuzzyRunes {
		return "", "", false, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT source_key, translated_text FROM custom_dictionary`)
	if err != nil {
		return "", "", false, err
	}
	defer rows.Close()

	bestScore := 0.0
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return "", "", false, err
		}

		// Length difference alone may rule the candidate out.
		ln, lk := len([]rune(normalized)), len([]rune(k))
		longest := max(ln, lk)
		diff := ln - lk
		if diff < 0 {
			diff = -diff
		}
		if longest > 0 && 1.0-float64(diff)/float64(longest) < threshold {
			continue
		}

		score := similarity(normalized, k)
		if score >= threshold && score > bestScore {
			bestScore = score
			key, translation = k, v
		}
	}
	if err := rows.Err(); err != nil {
		return "", "", false, err
	}
	return key, translation, key != "", nil
}

// SaveSession records or replaces the summary of a run.
func (s *Store) SaveSession(ctx context.Context, rec internal.SessionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions
		 (id, input_file, output_file, columns, status, total_items, unique_keys, processed, cache_hits, api_calls, fallbacks, learned, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.InputFile, rec.OutputFile, strings.Join(rec.Columns, ","), rec.Status,
		rec.TotalItems, rec.UniqueKeys, rec.Processed, rec.CacheHits, rec.APICalls, rec.Fallbacks, rec.Learned,
		rec.StartedAt.UTC(), rec.FinishedAt.UTC())
	return err
}

// ListSessions returns up to limit sessions, newest first. limit <= 0 means all.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]internal.SessionRecord, error) {
	query := `SELECT id, input_file, output_file, columns, status, total_items, unique_keys, processed,
		cache_hits, api_calls, fallbacks, learned, started_at, finished_at
		FROM sessions ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SessionRecord
	for rows.Next() {
		var rec internal.SessionRecord
		var columns string
		if err := rows.Scan(&rec.ID, &rec.InputFile, &rec.OutputFile, &columns, &rec.Status,
			&rec.TotalItems, &rec.UniqueKeys, &rec.Processed, &rec.CacheHits, &rec.APICalls,
			&rec.Fallbacks, &rec.Learned, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		if columns != "" {
			rec.Columns = strings.Split(columns, ",")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// levenshtein returns the edit distance between two strings (rune-aware),
// keeping only two rows of the DP table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1]
			} else {
				curr[j] = min(prev[j], prev[j-1], curr[j-1]) + 1
			}
		}
		prev, curr = curr, prev
	}

	return prev[lb]
}

// similarity returns a score in [0, 1], 1 meaning identical.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(longest)
}
