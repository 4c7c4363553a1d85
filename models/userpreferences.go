package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Languages a user may pick for the interface
var Languages = []string{"en", "hi", "kn"}

// DefaultLanguage is applied when a user has never saved preferences
const DefaultLanguage = "en"

// UserPreferences holds the structure for user preferences collection in mongo
type UserPreferences struct {
	ID               primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID           string             `json:"userId" bson:"userId"`
	DarkMode         bool               `json:"darkMode" bson:"darkMode"`
	Language         string             `json:"language" bson:"language"`
	HearingReminders bool               `json:"hearingReminders" bson:"hearingReminders"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// DefaultUserPreferences returns the preferences of a user who never saved any
func DefaultUserPreferences(userID string) UserPreferences {
	return UserPreferences{
		UserID:           userID,
		Language:         DefaultLanguage,
		HearingReminders: true,
	}
}
