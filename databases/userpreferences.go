package databases

// go generate: mockery --name UserPreferencesDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/legal-case-api/models"
)

const userPreferencesName = "userpreferences"

// UserPreferencesDatabase contains the methods to use with the user preferences database
type UserPreferencesDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.UserPreferences, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.UserPreferences, error)
	Upsert(ctx context.Context, userID string, prefs models.UserPreferences) error
}

type userPreferencesDatabase struct {
	db DatabaseHelper
}

// NewUserPreferencesDatabase initializes a new instance of user preferences database with the provided db connection
func NewUserPreferencesDatabase(db DatabaseHelper) UserPreferencesDatabase {
	return &userPreferencesDatabase{
		db: db,
	}
}

func (up *userPreferencesDatabase) FindOne(ctx context.Context, filter interface{}) (*models.UserPreferences, error) {
	prefs := &models.UserPreferences{}
	err := up.db.Collection(userPreferencesName).FindOne(ctx, filter).Decode(&prefs)
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

func (up *userPreferencesDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.UserPreferences, error) {
	var prefs []models.UserPreferences
	curr, err := up.db.Collection(userPreferencesName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &prefs)
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

// Upsert writes the mutable preference fields for userID, creating the document on first save
func (up *userPreferencesDatabase) Upsert(ctx context.Context, userID string, prefs models.UserPreferences) error {
	opts := options.Update().SetUpsert(true)
	_, err := up.db.Collection(userPreferencesName).UpdateOne(
		ctx,
		bson.M{"userId": userID},
		bson.M{
			"$set": bson.M{
				"darkMode":         prefs.DarkMode,
				"language":         prefs.Language,
				"hearingReminders": prefs.HearingReminders,
				"updatedAt":        prefs.UpdatedAt,
			},
			"$setOnInsert": bson.M{
				"userId":    userID,
				"createdAt": prefs.UpdatedAt,
			},
		},
		opts,
	)
	return err
}
