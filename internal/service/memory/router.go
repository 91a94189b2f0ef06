package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sandevgo/chainbot/internal/core"
	"github.com/sandevgo/chainbot/pkg/log"
)

const (
	listPageSize = 100
	// Scores from the memory service are uncalibrated, so the floor
	// stays permissive. A higher floor silently drops usable context.
	relevanceFloor = 0.2
)

var (
	temporalTerms = []string{"yesterday", "today", "last week", "last month", "this week"}
	personalTerms = []string{"about me", "know about me", "who am i", "my info", "my details"}
	activityTerms = []string{"what did i", "where did i", "what have i", "activities", "events"}
	workTerms     = []string{"tools", "work", "projects", "code", "development"}

	personalProbes   = []string{"name", "occupation", "work", "developer", "programming", "hobby", "interests", "preferences"}
	programmingTerms = []string{"code", "programming", "development", "python", "typescript", "react", "bun"}
)

// Router classifies a free-text query into a retrieval strategy and
// dispatches it against the memory store. Classification is an ordered
// rule table; the first matching strategy wins.
type Router struct {
	store  core.MemoryStore
	userID string

	now func() time.Time
}

func NewRouter(store core.MemoryStore, userID string) *Router {
	return &Router{
		store:  store,
		userID: userID,
		now:    time.Now,
	}
}

// Recall is best-effort: any store failure degrades to an empty partial
// result and is logged, never returned.
func (r *Router) Recall(ctx context.Context, query string, max int) []core.MemoryRecord {
	if !r.store.Available() || max <= 0 {
		return nil
	}

	lower := strings.ToLower(query)

	switch {
	case containsAny(lower, temporalTerms):
		return r.temporal(ctx, lower, max)
	case containsAny(lower, personalTerms):
		return r.personal(ctx, max)
	case containsAny(lower, activityTerms):
		return r.activity(ctx, max)
	case containsAny(lower, workTerms):
		return r.work(ctx, lower, max)
	default:
		return r.generic(ctx, query, max)
	}
}

// temporal lists recent records and filters client-side by created_at,
// since the store has no native date filter. Records with unparseable
// timestamps are skipped.
func (r *Router) temporal(ctx context.Context, lower string, max int) []core.MemoryRecord {
	start, end := r.resolveWindow(lower)

	records, err := r.store.List(ctx, r.userID, 1, listPageSize)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("temporal recall failed")
		return nil
	}

	var matched []core.MemoryRecord
	for _, rec := range records {
		created, ok := rec.ParseCreatedAt()
		if !ok {
			continue
		}
		if !created.Before(start) && !created.After(end) {
			matched = append(matched, rec)
		}
	}

	sortNewestFirst(matched)
	return clipRecords(matched, max)
}

func (r *Router) resolveWindow(lower string) (time.Time, time.Time) {
	now := r.now()

	switch {
	case strings.Contains(lower, "yesterday"):
		return now.Add(-24 * time.Hour), now
	case strings.Contains(lower, "last week"):
		return now.AddDate(0, 0, -7), now
	case strings.Contains(lower, "last month"):
		return now.AddDate(0, 0, -30), now
	case strings.Contains(lower, "today"):
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return midnight, now
	default:
		return now.AddDate(0, 0, -7), now
	}
}

// personal fires several fixed probe searches and merges the results,
// deduplicating by exact content.
func (r *Router) personal(ctx context.Context, max int) []core.MemoryRecord {
	var merged []core.MemoryRecord
	seen := make(map[string]struct{})

	for _, probe := range personalProbes {
		records, err := r.store.Search(ctx, probe, r.userID, 3)
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("probe", probe).Msg("personal recall probe failed")
			continue
		}
		for _, rec := range records {
			if rec.Content == "" {
				continue
			}
			if _, ok := seen[rec.Content]; ok {
				continue
			}
			seen[rec.Content] = struct{}{}
			merged = append(merged, rec)
		}
	}

	return clipRecords(merged, max)
}

func (r *Router) activity(ctx context.Context, max int) []core.MemoryRecord {
	merged := r.listByType(ctx, core.MemoryToolSuccess, max/2)
	merged = append(merged, r.listByType(ctx, core.MemoryConversation, max/2)...)

	sortNewestFirst(merged)
	return clipRecords(merged, max)
}

// work pulls tool successes, then supplements with semantic recall for
// programming terms literally present in the query. Dedupe is by ID.
func (r *Router) work(ctx context.Context, lower string, max int) []core.MemoryRecord {
	records := r.listByType(ctx, core.MemoryToolSuccess, max)

	for _, term := range programmingTerms {
		if !strings.Contains(lower, term) {
			continue
		}
		extra, err := r.store.Search(ctx, term, r.userID, 3)
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("term", term).Msg("work recall search failed")
			continue
		}
		records = append(records, extra...)
	}

	var unique []core.MemoryRecord
	seen := make(map[string]struct{})
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		unique = append(unique, rec)
	}

	return clipRecords(unique, max)
}

func (r *Router) generic(ctx context.Context, query string, max int) []core.MemoryRecord {
	records, err := r.store.Search(ctx, query, r.userID, max)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("generic recall failed")
		return nil
	}

	var kept []core.MemoryRecord
	for _, rec := range records {
		// Zero means the store did not score the record at all.
		if rec.Score == 0 || rec.Score > relevanceFloor {
			kept = append(kept, rec)
		}
	}
	return kept
}

func (r *Router) listByType(ctx context.Context, memType string, max int) []core.MemoryRecord {
	records, err := r.store.List(ctx, r.userID, 1, 50)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("type", memType).Msg("typed recall failed")
		return nil
	}

	var filtered []core.MemoryRecord
	for _, rec := range records {
		if rec.Type() == memType {
			filtered = append(filtered, rec)
		}
	}
	return clipRecords(filtered, max)
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

func sortNewestFirst(records []core.MemoryRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt > records[j].CreatedAt
	})
}

func clipRecords(records []core.MemoryRecord, max int) []core.MemoryRecord {
	if len(records) > max {
		return records[:max]
	}
	return records
}
