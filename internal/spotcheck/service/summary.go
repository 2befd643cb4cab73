package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"spotcheck/internal/spotcheck/models"
)

// summaryCacheTTL keeps dashboard refreshes off the ledger without letting
// stale counts linger. Ingestion invalidates eagerly anyway.
const summaryCacheTTL = time.Minute

func summaryCacheKey(ds models.DataSource) string {
	return "spotcheck:summary:" + string(ds)
}

type cachedSummary struct {
	Entries []summaryEntry `json:"entries"`
}

type summaryEntry struct {
	ContentType string `json:"contentType"`
	Status      string `json:"status"`
	Count       int    `json:"count"`
}

// GetMismatchSummary folds the latest-state view into counts by content type
// and status for one data source. Suppressed lineages are excluded, the window
// is the current legislative session, and resolved lineages drop out of the
// summary only once their resolution is older than the start of the as-of day,
// so a dashboard does not instantly hide items fixed moments ago.
//
// A zero asOf means "now" and enables the cache; explicit historical asOf
// values always hit the ledger.
func (s *Service) GetMismatchSummary(ctx context.Context, ds models.DataSource, asOf time.Time) (*models.MismatchSummary, error) {
	cacheable := asOf.IsZero()
	if cacheable {
		asOf = time.Now()
		if cached := s.cachedSummary(ctx, ds); cached != nil {
			return cached, nil
		}
	}

	page, err := s.ledger.GetMismatches(ctx, models.MismatchQuery{
		DataSource:   ds,
		IgnoreLevels: []models.IgnoreLevel{models.NotIgnored},
		FromDate:     models.SessionStart(asOf),
		ToDate:       asOf,
	}, models.All)
	if err != nil {
		return nil, err
	}

	startOfDay := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())
	summary := models.NewMismatchSummary()
	for _, row := range page.Results {
		if row.Status == models.StatusResolved && row.ReferenceActiveDateTime.Before(startOfDay) {
			continue
		}
		summary.Add(row.ContentType, row.Status)
	}

	if cacheable {
		s.storeSummary(ctx, ds, summary)
	}
	return summary, nil
}

func (s *Service) cachedSummary(ctx context.Context, ds models.DataSource) *models.MismatchSummary {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, summaryCacheKey(ds)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.WarnContext(ctx, "summary cache read failed", "error", err)
		}
		return nil
	}
	var cached cachedSummary
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.logger.WarnContext(ctx, "summary cache entry corrupt, ignoring", "error", err)
		return nil
	}
	summary := models.NewMismatchSummary()
	for _, e := range cached.Entries {
		ct, err := models.ParseContentType(e.ContentType)
		if err != nil {
			return nil
		}
		status, err := models.ParseMismatchStatus(e.Status)
		if err != nil {
			return nil
		}
		summary.Counts[models.SummaryKey{ContentType: ct, Status: status}] = e.Count
	}
	return summary
}

func (s *Service) storeSummary(ctx context.Context, ds models.DataSource, summary *models.MismatchSummary) {
	if s.cache == nil {
		return
	}
	cached := cachedSummary{Entries: make([]summaryEntry, 0, len(summary.Counts))}
	for key, count := range summary.Counts {
		cached.Entries = append(cached.Entries, summaryEntry{
			ContentType: string(key.ContentType),
			Status:      string(key.Status),
			Count:       count,
		})
	}
	payload, err := json.Marshal(cached)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, summaryCacheKey(ds), payload, summaryCacheTTL).Err(); err != nil {
		s.logger.WarnContext(ctx, "summary cache write failed", "error", err)
	}
}

func (s *Service) invalidateSummary(ctx context.Context, ds models.DataSource) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, summaryCacheKey(ds)).Err(); err != nil {
		s.logger.WarnContext(ctx, "summary cache invalidation failed", "error", err)
	}
}
