package model

import "time"

// CalendarEntry schedules a recipe for a user on a date. Status flips to true
// when the user marks the meal completed.
type CalendarEntry struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    int       `gorm:"not null;index" json:"user_id"`
	RecipeID  int       `gorm:"not null" json:"recipe_id"`
	Date      string    `gorm:"size:10;not null" json:"date"` // YYYY-MM-DD
	MealType  string    `gorm:"size:20;not null" json:"meal_type"`
	Status    bool      `gorm:"not null;default:false" json:"status"`
}

func (CalendarEntry) TableName() string {
	return "calendar_entries"
}
