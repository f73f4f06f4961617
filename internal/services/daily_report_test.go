package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whomimohshukla/freelancehub/internal/models"
)

func TestReportCron(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"08:00", "0 8 * * *"},
		{"23:45", "45 23 * * *"},
		{"7:05", "5 7 * * *"},
		{"", "0 8 * * *"},
		{"24:00", "0 8 * * *"},
		{"12:60", "0 8 * * *"},
		{"noon", "0 8 * * *"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, reportCron(tt.in))
		})
	}
}

func TestStartOfDay(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	got := startOfDay(time.Date(2026, 3, 2, 3, 0, 0, 0, ist))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestDailyReport_GenerateCountsTheDay(t *testing.T) {
	m := newMarket(t)
	ctx := context.Background()

	project := m.hire(t, 500)
	require.NoError(t, m.db.Model(&models.Project{}).Where("id = ?", project.ID).Update("category", "design").Error)
	ms := m.addMilestone(t, project.ID, 500)
	payment := m.fund(t, ms.ID)
	m.approve(t, ms.ID)
	require.NoError(t, m.payments.SetPayoutAccount(m.freelancerActor(), &PayoutAccountRequest{AccountID: "acc_report"}))
	_, err := m.payments.Release(ctx, m.clientActor(), payment.ID)
	require.NoError(t, err)

	reports := NewDailyReportService(m.db, nil, NewAlertService(m.db))
	report, err := reports.Generate(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, startOfDay(time.Now()), report.ReportDate.UTC())
	assert.Equal(t, 2, report.NewUsers)
	assert.Equal(t, 1, report.NewProjects)
	assert.Equal(t, 1, report.NewProposals)
	assert.Equal(t, 1, report.Hires)
	assert.Equal(t, 1, report.ReleasedCount)
	assert.Equal(t, 500.0, report.ReleasedAmount)
	assert.Equal(t, 50.0, report.PlatformFees)
	assert.Zero(t, report.EscrowHeldAmount)
	assert.JSONEq(t, `[{"name":"design","count":1}]`, report.TopCategories)
	assert.Empty(t, report.AIAnalysis)

	again, err := reports.Generate(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, report.ID, again.ID)

	yesterday, err := reports.Generate(ctx, time.Now().AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.NotEqual(t, report.ID, yesterday.ID)
	assert.Zero(t, yesterday.NewProjects)
	assert.Zero(t, yesterday.ReleasedCount)

	page, err := reports.List(&PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, report.ID, page.Items[0].ID)
}

func TestBuildReportSummary(t *testing.T) {
	summary := BuildReportSummary(&models.DailyReport{
		ReportDate:     time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
		NewUsers:       3,
		Hires:          2,
		ReleasedCount:  1,
		ReleasedAmount: 1200,
		PlatformFees:   120,
		FailedReleases: 1,
		TopCategories:  `[{"name":"web","count":4},{"name":"design","count":1}]`,
	})
	assert.Contains(t, summary, "## FreelanceHub daily digest - 2026-05-04")
	assert.Contains(t, summary, "- New users: 3")
	assert.Contains(t, summary, "1200.00 GMV, 120.00 fees")
	assert.Contains(t, summary, "Failed releases waiting for retry: 1")
	assert.Contains(t, summary, "Top categories: web (4), design (1)")

	quiet := BuildReportSummary(&models.DailyReport{ReportDate: time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC), TopCategories: "[]"})
	assert.NotContains(t, quiet, "Failed releases")
	assert.NotContains(t, quiet, "Top categories")
}

func TestDailyReport_GenerateAndSend(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	reports := NewDailyReportService(db, nil, NewAlertService(db))
	day := time.Date(2026, 1, 10, 15, 0, 0, 0, time.UTC)

	held, err := TryAcquireLock(db, dailyReportLock, "2026-01-10", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	report, err := reports.GenerateAndSend(ctx, day)
	require.NoError(t, err)
	assert.Nil(t, report, "another instance owns the day")
	require.NoError(t, ReleaseLock(db, dailyReportLock, "2026-01-10"))

	report, err = reports.GenerateAndSend(ctx, day)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.NotNil(t, report.NotifiedAt)

	stored, err := reports.GetByID(report.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.NotifiedAt)

	var locks int64
	require.NoError(t, db.Model(&models.SchedulerLock{}).Count(&locks).Error)
	assert.Zero(t, locks)

	_, err = reports.GetByID(report.ID + 100)
	requireAppError(t, err, 404)
}
