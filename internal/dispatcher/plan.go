package dispatcher

import (
	"github.com/valpere/bntran/internal/lexicon"
	"github.com/valpere/bntran/internal/placeholder"
)

const maxBatchSize = 20

// BatchSize returns how many keys a worker handles per batch. Small jobs
// get one key per batch so every worker has something to do; large ones
// aim for two batches per worker, capped at maxBatchSize.
func BatchSize(misses, workers int) int {
	if workers < 1 {
		workers = 1
	}
	if misses < workers*2 {
		return 1
	}
	return max(1, min(maxBatchSize, misses/(workers*2)))
}

// keyGroup is one distinct normalized text and the items that share it.
type keyGroup struct {
	key   string
	text  string // first occurrence, sent to the provider
	items []int
}

// plan is the deduplicated view of a run's items.
type plan struct {
	groups []*keyGroup
	// direct holds values resolved without a key: numeric cells and cells
	// holding nothing but addresses or markup.
	direct map[int]string
	blank  int
}

// buildPlan groups items by normalized key in first-seen order. Blank cells
// are dropped and numeric or markup-only cells resolved on the spot, per
// column, since the preserve flag belongs to the column rather than the text.
func buildPlan(items []WorkItem, preserve map[string]bool) *plan {
	p := &plan{direct: make(map[int]string)}
	byKey := make(map[string]*keyGroup)

	for i, it := range items {
		if lexicon.IsBlank(it.Text) {
			p.blank++
			continue
		}
		if preserve[it.Column] && lexicon.IsNumeric(it.Text) {
			p.direct[i] = lexicon.ToBengaliDigits(it.Text)
			continue
		}
		if lexicon.IsNumericField(it.Text) || placeholder.OnlyMarkup(it.Text) {
			p.direct[i] = it.Text
			continue
		}

		key := lexicon.Normalize(it.Text)
		g, ok := byKey[key]
		if !ok {
			g = &keyGroup{key: key, text: it.Text}
			byKey[key] = g
			p.groups = append(p.groups, g)
		}
		g.items = append(g.items, i)
	}
	return p
}

func chunk(groups []*keyGroup, size int) [][]*keyGroup {
	if size < 1 {
		size = 1
	}
	var out [][]*keyGroup
	for start := 0; start < len(groups); start += size {
		end := min(start+size, len(groups))
		out = append(out, groups[start:end])
	}
	return out
}
