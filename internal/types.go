package internal

import "time"

// SessionRecord is the persisted summary of one translation run.
type SessionRecord struct {
	ID         string    `json:"id"`
	InputFile  string    `json:"input_file"`
	OutputFile string    `json:"output_file"`
	Columns    []string  `json:"columns"`
	Status     string    `json:"status"`
	TotalItems int       `json:"total_items"`
	UniqueKeys int       `json:"unique_keys"`
	Processed  int       `json:"processed"`
	CacheHits  int       `json:"cache_hits"`
	APICalls   int       `json:"api_calls"`
	Fallbacks  int       `json:"fallbacks"`
	Learned    int       `json:"learned"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
