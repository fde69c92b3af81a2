package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the public profile row. AuthID is the identity the frontend sends;
// the integer ID is what every other table references.
type User struct {
	ID                 int              `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	AuthID             uuid.UUID        `gorm:"type:uuid;uniqueIndex" json:"auth_id"`
	Email              string           `gorm:"size:255;uniqueIndex" json:"email"`
	Allergies          JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"allergies"`
	DietaryPreferences JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"dietary_preferences"`
	KitchenEquipment   JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"kitchen_equipment"`
	WeightKg           *float64         `json:"weight_kg"`
	HeightCm           *float64         `json:"height_cm"`
}

// Profile is the slice of User the recommendation pipeline consumes.
type Profile struct {
	Allergies          []string `json:"allergies"`
	DietaryPreferences []string `json:"dietary_preferences"`
	KitchenEquipment   []string `json:"kitchen_equipment"`
}

// Profile extracts the personalization constraints from a user row.
func (u *User) Profile() *Profile {
	return &Profile{
		Allergies:          u.Allergies,
		DietaryPreferences: u.DietaryPreferences,
		KitchenEquipment:   u.KitchenEquipment,
	}
}
