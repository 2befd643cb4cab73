package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotcheck/internal/spotcheck/models"
)

func TestGetMismatchSummaryCountsLatestState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	keyA := models.BillKey{Session: 2023, BasePrintNo: "A1"}
	keyB := models.BillKey{Session: 2023, BasePrintNo: "A2"}

	require.NoError(t, f.service.SaveReport(ctx, daybreakReport(day1, map[models.ContentKey][]models.ObservedMismatch{
		keyA: {titleMismatch("wrong")},
		keyB: {titleMismatch("also wrong")},
	})))
	require.NoError(t, f.service.SaveReport(ctx, daybreakReport(day2, map[models.ContentKey][]models.ObservedMismatch{
		keyA: {titleMismatch("still wrong")},
	})))

	summary, err := f.service.GetMismatchSummary(ctx, models.DataSourceLBDC, day2)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Count(models.ContentTypeBill, models.StatusExisting))
	assert.Equal(t, 1, summary.Count(models.ContentTypeBill, models.StatusNew))
	assert.Equal(t, 0, summary.StatusTotal(models.StatusResolved))
}

func TestGetMismatchSummarySameDayResolvedCarveOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	keyA := models.BillKey{Session: 2023, BasePrintNo: "A1"}
	keyB := models.BillKey{Session: 2023, BasePrintNo: "A2"}

	require.NoError(t, f.service.SaveReport(ctx, daybreakReport(day1, map[models.ContentKey][]models.ObservedMismatch{
		keyA: {titleMismatch("wrong")},
		keyB: {titleMismatch("also wrong")},
	})))
	// keyA resolves the day before the as-of day, keyB resolves on it.
	require.NoError(t, f.service.SaveReport(ctx, daybreakReport(day2, map[models.ContentKey][]models.ObservedMismatch{
		keyA: nil,
	})))
	require.NoError(t, f.service.SaveReport(ctx, daybreakReport(day3, map[models.ContentKey][]models.ObservedMismatch{
		keyB: nil,
	})))

	summary, err := f.service.GetMismatchSummary(ctx, models.DataSourceLBDC, day3)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Count(models.ContentTypeBill, models.StatusResolved),
		"a lineage resolved on the as-of day still shows")
	assert.Equal(t, 0, summary.Count(models.ContentTypeBill, models.StatusNew))
	assert.Equal(t, 0, summary.Count(models.ContentTypeBill, models.StatusExisting))
}

func TestGetMismatchSummaryWindowedToSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// An open finding from the 2021-2022 session must not leak into a
	// 2023-session summary.
	oldReport := daybreakReport(time.Date(2022, time.June, 1, 6, 0, 0, 0, time.UTC),
		map[models.ContentKey][]models.ObservedMismatch{
			models.BillKey{Session: 2021, BasePrintNo: "S50"}: {titleMismatch("stale")},
		})
	require.NoError(t, f.service.SaveReport(ctx, oldReport))

	require.NoError(t, f.service.SaveReport(ctx, daybreakReport(day1, map[models.ContentKey][]models.ObservedMismatch{
		keyS100: {titleMismatch("wrong")},
	})))

	summary, err := f.service.GetMismatchSummary(ctx, models.DataSourceLBDC, day2)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Count(models.ContentTypeBill, models.StatusNew))
	assert.Equal(t, 1, summary.StatusTotal(models.StatusNew), "prior-session lineage excluded")
}

func TestGetMismatchSummaryExcludesSuppressedLineages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.service.SaveReport(ctx, daybreakReport(day1, map[models.ContentKey][]models.ObservedMismatch{
		keyS100: {titleMismatch("wrong")},
	})))
	page, err := f.service.GetMismatches(ctx, models.MismatchQuery{}, models.All)
	require.NoError(t, err)
	require.NoError(t, f.service.SetIgnoreStatus(ctx, page.Results[0].ID, models.IgnorePermanent))

	summary, err := f.service.GetMismatchSummary(ctx, models.DataSourceLBDC, day2)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.StatusTotal(models.StatusNew))
}

func TestGetMismatchSummaryScopedToDataSource(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.service.SaveReport(ctx, daybreakReport(day1, map[models.ContentKey][]models.ObservedMismatch{
		keyS100: {titleMismatch("wrong")},
	})))

	summary, err := f.service.GetMismatchSummary(ctx, models.DataSourceNYSenate, day2)
	require.NoError(t, err)
	assert.Empty(t, summary.Counts)
}
