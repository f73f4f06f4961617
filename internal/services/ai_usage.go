package services

import (
	"time"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
	"gorm.io/gorm"
)

// AIUsageService keeps the cost trail of LLM calls
type AIUsageService struct {
	db *gorm.DB
}

func NewAIUsageService(db *gorm.DB) *AIUsageService {
	return &AIUsageService{db: db}
}

// Record stores one call; failures are only logged
func (s *AIUsageService) Record(entry *models.AIUsageLog) {
	if len(entry.ErrorMessage) > 500 {
		entry.ErrorMessage = entry.ErrorMessage[:500]
	}
	if err := s.db.Create(entry).Error; err != nil {
		logger.Warn().Err(err).Str("feature", entry.Feature).Msg("[AIUsage] failed to record usage")
	}
}

type UsageFilter struct {
	StartDate string `form:"start_date"` // YYYY-MM-DD
	EndDate   string `form:"end_date"`
	Feature   string `form:"feature"`
	UserID    uint   `form:"user_id"`
}

func (s *AIUsageService) filtered(f *UsageFilter) *gorm.DB {
	query := s.db.Model(&models.AIUsageLog{})
	if f == nil {
		return query
	}
	if f.StartDate != "" {
		query = query.Where("created_at >= ?", f.StartDate)
	}
	if f.EndDate != "" {
		query = query.Where("created_at <= ?", f.EndDate+" 23:59:59")
	}
	if f.Feature != "" {
		query = query.Where("feature = ?", f.Feature)
	}
	if f.UserID > 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	return query
}

type UsageStats struct {
	TotalCalls       int64   `json:"total_calls"`
	SuccessCount     int64   `json:"success_count"`
	FailureCount     int64   `json:"failure_count"`
	SuccessRate      float64 `json:"success_rate"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	AvgLatencyMs     float64 `json:"avg_latency_ms"`
}

const usageAggregates = "COUNT(*) AS total_calls, " +
	"COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) AS success_count, " +
	"COALESCE(SUM(prompt_tokens), 0) AS prompt_tokens, " +
	"COALESCE(SUM(completion_tokens), 0) AS completion_tokens, " +
	"COALESCE(SUM(total_tokens), 0) AS total_tokens, " +
	"COALESCE(AVG(latency_ms), 0) AS avg_latency_ms"

func (st *UsageStats) finish() {
	st.FailureCount = st.TotalCalls - st.SuccessCount
	if st.TotalCalls > 0 {
		st.SuccessRate = float64(st.SuccessCount) / float64(st.TotalCalls) * 100
	}
}

func (s *AIUsageService) GetStats(f *UsageFilter) (*UsageStats, error) {
	var stats UsageStats
	if err := s.filtered(f).Select(usageAggregates).Scan(&stats).Error; err != nil {
		return nil, err
	}
	stats.finish()
	return &stats, nil
}

// FeatureUsage is one row of the per-feature, per-model breakdown
type FeatureUsage struct {
	Feature  string `json:"feature"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	UsageStats
}

func (s *AIUsageService) GetBreakdown(f *UsageFilter) ([]FeatureUsage, error) {
	rows := []FeatureUsage{}
	err := s.filtered(f).
		Select("feature, provider, model, " + usageAggregates).
		Group("feature, provider, model").
		Order("total_calls DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].finish()
	}
	return rows, nil
}

type DailyUsage struct {
	Date        string `json:"date"`
	Calls       int64  `json:"calls"`
	TotalTokens int64  `json:"total_tokens"`
}

func (s *AIUsageService) GetDailyTrend(f *UsageFilter) ([]DailyUsage, error) {
	rows := []DailyUsage{}
	err := s.filtered(f).
		Select("DATE(created_at) AS date, COUNT(*) AS calls, COALESCE(SUM(total_tokens), 0) AS total_tokens").
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&rows).Error
	return rows, err
}

// CleanupBefore deletes usage rows older than before
func (s *AIUsageService) CleanupBefore(before time.Time) (int64, error) {
	res := s.db.Where("created_at < ?", before).Delete(&models.AIUsageLog{})
	return res.RowsAffected, res.Error
}
