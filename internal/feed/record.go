package feed

import (
	"cmp"
	"slices"
	"time"

	"github.com/khantimmy27/portfolio/internal/github"
)

// DefaultMaxItems is the number of repositories shown on the page.
const DefaultMaxItems = 8

// Record is one repository as displayed on the page.
type Record struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	URL         string    `json:"url"`
	Homepage    *string   `json:"homepage"`
	Stars       int       `json:"stars"`
	Language    string    `json:"language,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Options controls the filter and truncation stages.
type Options struct {
	// MaxItems caps the result. Zero or negative means DefaultMaxItems.
	MaxItems int
	// AllowList restricts results to these exact names when non-empty.
	AllowList []string
}

func (o Options) maxItems() int {
	if o.MaxItems <= 0 {
		return DefaultMaxItems
	}
	return o.MaxItems
}

// Transform drops forks and archived repositories, applies the allow-list,
// orders by stars then recency, and truncates.
func Transform(repos []github.Repository, opts Options) []Record {
	records := make([]Record, 0, len(repos))
	for _, r := range repos {
		if r.Fork || r.Archived {
			continue
		}
		records = append(records, toRecord(r))
	}

	if len(opts.AllowList) > 0 {
		records = slices.DeleteFunc(records, func(r Record) bool {
			return !slices.Contains(opts.AllowList, r.Name)
		})
	}

	slices.SortStableFunc(records, compareRecords)

	if n := opts.maxItems(); len(records) > n {
		records = records[:n]
	}
	return records
}

// compareRecords orders by stars descending, then UpdatedAt descending.
func compareRecords(a, b Record) int {
	if c := cmp.Compare(b.Stars, a.Stars); c != 0 {
		return c
	}
	return b.UpdatedAt.Compare(a.UpdatedAt)
}

func toRecord(r github.Repository) Record {
	rec := Record{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		URL:         r.HTMLURL,
		Homepage:    r.Homepage,
		Stars:       r.StargazersCount,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Language != nil {
		rec.Language = *r.Language
	}
	if rec.Homepage != nil && *rec.Homepage == "" {
		rec.Homepage = nil
	}
	return rec
}
