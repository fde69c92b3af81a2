package model

import "time"

// UserMetric is one logged weight/height measurement.
type UserMetric struct {
	ID         int       `gorm:"primaryKey" json:"id"`
	UserID     int       `gorm:"not null;index" json:"user_id"`
	WeightKg   *float64  `json:"weight_kg"`
	HeightCm   *float64  `json:"height_cm"`
	RecordedAt time.Time `gorm:"not null" json:"recorded_at"`
}

func (UserMetric) TableName() string {
	return "user_metrics_history"
}
