package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/linesmerrill/legal-case-api/api"
	"github.com/linesmerrill/legal-case-api/cases"
	"github.com/linesmerrill/legal-case-api/config"
	"github.com/linesmerrill/legal-case-api/databases"
	"github.com/linesmerrill/legal-case-api/models"
)

// UserPreferences exported for testing purposes
type UserPreferences struct {
	DB  databases.UserPreferencesDatabase
	Now func() time.Time
}

// GetUserPreferencesHandler returns the preferences of the authenticated user,
// falling back to the defaults when none were saved
func (up UserPreferences) GetUserPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.UserFromContext(r.Context())
	if !ok {
		config.ErrorStatus("Not authorized, no token", http.StatusUnauthorized, w, nil)
		return
	}
	userID := user.ID.Hex()
	zap.S().Debugf("user_id: %v", userID)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	userPreferences, err := up.DB.FindOne(ctx, bson.M{"userId": userID})
	if err != nil {
		// If no preferences found, return the defaults
		if errors.Is(err, mongo.ErrNoDocuments) {
			defaults := models.DefaultUserPreferences(userID)
			writeJSON(w, http.StatusOK, defaults)
			return
		}
		config.ErrorStatus("failed to get user preferences", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, userPreferences)
}

// UpdateUserPreferencesHandler saves the preferences of the authenticated user
func (up UserPreferences) UpdateUserPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.UserFromContext(r.Context())
	if !ok {
		config.ErrorStatus("Not authorized, no token", http.StatusUnauthorized, w, nil)
		return
	}
	userID := user.ID.Hex()

	userPreferences := models.DefaultUserPreferences(userID)
	if err := json.NewDecoder(r.Body).Decode(&userPreferences); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	languages := make([]interface{}, len(models.Languages))
	for i, l := range models.Languages {
		languages[i] = l
	}
	err := validation.ValidateStruct(&userPreferences,
		validation.Field(&userPreferences.Language, validation.Required, validation.In(languages...)),
	)
	if err != nil {
		config.ValidationErrorStatus("preferences validation failed", cases.Fields(err), w, err)
		return
	}

	now := time.Now()
	if up.Now != nil {
		now = up.Now()
	}
	userPreferences.UserID = userID
	userPreferences.UpdatedAt = now

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := up.DB.Upsert(ctx, userID, userPreferences); err != nil {
		config.ErrorStatus("failed to update user preferences", http.StatusInternalServerError, w, err)
		return
	}

	saved, err := up.DB.FindOne(ctx, bson.M{"userId": userID})
	if err != nil {
		config.ErrorStatus("failed to get user preferences", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
