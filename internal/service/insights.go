package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epicourier-team/epicourier-backend/internal/model"
)

// ErrUserNotFound is returned when an auth id has no matching profile row.
var ErrUserNotFound = errors.New("user profile not found")

// MetricLog is one weight/height measurement submitted by the frontend.
type MetricLog struct {
	UserID     string     `json:"user_id"` // auth UUID
	WeightKg   *float64   `json:"weight_kg"`
	HeightCm   *float64   `json:"height_cm"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// WeightPoint is one sample on the weight trend graph.
type WeightPoint struct {
	Date   string   `json:"date"`
	Weight *float64 `json:"weight"`
}

// MealTypeCount is one slice of the meal type distribution.
type MealTypeCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// WeeklyAdherence is the completion rate for one calendar week.
type WeeklyAdherence struct {
	Week      string  `json:"week"` // Monday, YYYY-MM-DD
	Rate      float64 `json:"rate"`
	Completed int     `json:"completed"`
}

// StatsResponse aggregates a user's meal and weight history for the
// insights dashboard.
type StatsResponse struct {
	CompletionRate       float64           `json:"completion_rate"`
	TotalMeals           int               `json:"total_meals"`
	CompletedMeals       int               `json:"completed_meals"`
	AvgGreenScore        float64           `json:"avg_green_score"`
	WeightTrend          []WeightPoint     `json:"weight_trend"`
	MealTypeDistribution []MealTypeCount   `json:"meal_type_distribution"`
	WeeklyAdherence      []WeeklyAdherence `json:"weekly_adherence"`
}

// InsightsService computes user statistics and records body metrics.
type InsightsService struct {
	db *gorm.DB
}

// NewInsightsService creates an InsightsService.
func NewInsightsService(db *gorm.DB) *InsightsService {
	return &InsightsService{db: db}
}

// ResolveUserID maps the frontend's auth UUID to the integer profile id.
func (s *InsightsService) ResolveUserID(ctx context.Context, authID string) (int, error) {
	parsed, err := uuid.Parse(authID)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid auth id", ErrUserNotFound)
	}

	var user model.User
	err = s.db.WithContext(ctx).Select("id").Where("auth_id = ?", parsed).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve user: %w", err)
	}
	return user.ID, nil
}

// LogMetrics stores a measurement and mirrors the latest values onto the
// user profile.
func (s *InsightsService) LogMetrics(ctx context.Context, metric *MetricLog) (*model.UserMetric, error) {
	publicID, err := s.ResolveUserID(ctx, metric.UserID)
	if err != nil {
		return nil, err
	}

	recordedAt := time.Now()
	if metric.RecordedAt != nil {
		recordedAt = *metric.RecordedAt
	}

	row := &model.UserMetric{
		UserID:     publicID,
		WeightKg:   metric.WeightKg,
		HeightCm:   metric.HeightCm,
		RecordedAt: recordedAt,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to log metrics: %w", err)
	}

	updates := map[string]interface{}{}
	if metric.WeightKg != nil {
		updates["weight_kg"] = *metric.WeightKg
	}
	if metric.HeightCm != nil {
		updates["height_cm"] = *metric.HeightCm
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&model.User{}).
			Where("id = ?", publicID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update profile metrics: %w", err)
		}
	}
	return row, nil
}

// Stats aggregates calendar completion and weight history over a period of
// "7d", "30d", "90d" or "all". Unknown users get zeroed stats rather than an
// error so a fresh dashboard renders cleanly.
func (s *InsightsService) Stats(ctx context.Context, authID, period string) (*StatsResponse, error) {
	stats := &StatsResponse{
		WeightTrend:          []WeightPoint{},
		MealTypeDistribution: []MealTypeCount{},
		WeeklyAdherence:      []WeeklyAdherence{},
	}

	publicID, err := s.ResolveUserID(ctx, authID)
	if errors.Is(err, ErrUserNotFound) {
		return stats, nil
	}
	if err != nil {
		return nil, err
	}

	startDate := periodStart(period, time.Now())

	type calendarRow struct {
		ID         int
		Date       string
		MealType   string
		Status     bool
		GreenScore *float64
	}
	var entries []calendarRow
	err = s.db.WithContext(ctx).
		Table("calendar_entries").
		Select("calendar_entries.id, calendar_entries.date, calendar_entries.meal_type, calendar_entries.status, recipes.green_score").
		Joins("LEFT JOIN recipes ON recipes.id = calendar_entries.recipe_id").
		Where("calendar_entries.user_id = ? AND calendar_entries.date >= ?", publicID, startDate.Format("2006-01-02")).
		Order("calendar_entries.date").
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar entries: %w", err)
	}

	if len(entries) > 0 {
		stats.TotalMeals = len(entries)

		var greenSum float64
		greenCount := 0
		mealTypes := map[string]int{}
		type weekAgg struct{ total, completed int }
		weeks := map[string]*weekAgg{}

		for _, e := range entries {
			week := weekStart(e.Date)
			if _, ok := weeks[week]; !ok {
				weeks[week] = &weekAgg{}
			}
			weeks[week].total++

			if e.Status {
				stats.CompletedMeals++
				weeks[week].completed++
				mealTypes[e.MealType]++
				if e.GreenScore != nil {
					greenSum += *e.GreenScore
					greenCount++
				}
			}
		}

		stats.CompletionRate = round1(float64(stats.CompletedMeals) / float64(stats.TotalMeals) * 100)
		if greenCount > 0 {
			stats.AvgGreenScore = round1(greenSum / float64(greenCount))
		}

		for name, count := range mealTypes {
			stats.MealTypeDistribution = append(stats.MealTypeDistribution, MealTypeCount{Name: name, Value: count})
		}
		sort.Slice(stats.MealTypeDistribution, func(i, j int) bool {
			a, b := stats.MealTypeDistribution[i], stats.MealTypeDistribution[j]
			if a.Value != b.Value {
				return a.Value > b.Value
			}
			return a.Name < b.Name
		})

		for week, agg := range weeks {
			stats.WeeklyAdherence = append(stats.WeeklyAdherence, WeeklyAdherence{
				Week:      week,
				Rate:      round1(float64(agg.completed) / float64(agg.total) * 100),
				Completed: agg.completed,
			})
		}
		sort.Slice(stats.WeeklyAdherence, func(i, j int) bool {
			return stats.WeeklyAdherence[i].Week < stats.WeeklyAdherence[j].Week
		})
	}

	var metrics []model.UserMetric
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND recorded_at >= ?", publicID, startDate).
		Order("recorded_at").
		Find(&metrics).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load weight history: %w", err)
	}
	for _, m := range metrics {
		stats.WeightTrend = append(stats.WeightTrend, WeightPoint{
			Date:   m.RecordedAt.Format("2006-01-02"),
			Weight: m.WeightKg,
		})
	}

	return stats, nil
}

func periodStart(period string, now time.Time) time.Time {
	switch period {
	case "7d":
		return now.AddDate(0, 0, -7)
	case "30d":
		return now.AddDate(0, 0, -30)
	case "90d":
		return now.AddDate(0, 0, -90)
	default:
		return now.AddDate(-1, 0, 0)
	}
}

// weekStart returns the Monday of the week containing the YYYY-MM-DD date.
// Unparseable dates bucket under themselves.
func weekStart(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset).Format("2006-01-02")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
