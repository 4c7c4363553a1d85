package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/legal-case-api/api"
	"github.com/linesmerrill/legal-case-api/cases"
	"github.com/linesmerrill/legal-case-api/config"
	"github.com/linesmerrill/legal-case-api/databases"
	"github.com/linesmerrill/legal-case-api/models"
)

const (
	// MinPasswordLength is the shortest password accepted at signup or change
	MinPasswordLength = 8
	// EmailTakenCode marks a signup or email change colliding with another account
	EmailTakenCode = "EMAIL_TAKEN"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User exported for testing purposes
type User struct {
	DB   databases.UserDatabase
	Auth api.Authenticator
	Now  func() time.Time
}

func (u User) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

// HashPassword returns the bcrypt hash stored for a password
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignupHandler registers a new user and returns a session token
func (u User) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = normalizeEmail(req.Email)

	err := validation.ValidateStruct(&req,
		validation.Field(&req.FullName, validation.Required),
		validation.Field(&req.Email, validation.Required, validation.Match(emailPattern).Error("must be a valid email address")),
		validation.Field(&req.Password, validation.Required, validation.RuneLength(MinPasswordLength, 0)),
	)
	if err != nil {
		config.ValidationErrorStatus("signup validation failed", cases.Fields(err), w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	taken, err := u.emailTaken(ctx, req.Email, primitive.NilObjectID)
	if err != nil {
		config.ErrorStatus("failed to check email", http.StatusInternalServerError, w, err)
		return
	}
	if taken {
		config.ErrorStatusWithCode("Email already registered", EmailTakenCode, http.StatusBadRequest, w, nil)
		return
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	now := u.now()
	user := models.User{
		ID:        primitive.NewObjectID(),
		FullName:  req.FullName,
		Email:     req.Email,
		Password:  hashedPassword,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := u.DB.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			config.ErrorStatusWithCode("Email already registered", EmailTakenCode, http.StatusBadRequest, w, err)
			return
		}
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}
	zap.S().Infow("user signed up", "user_id", user.ID.Hex())

	u.respondWithToken(w, http.StatusCreated, user)
}

// LoginHandler checks the credentials and returns a session token
func (u User) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := u.DB.FindOne(ctx, bson.M{"email": normalizeEmail(req.Email)})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("Invalid email or password", http.StatusUnauthorized, w, nil)
			return
		}
		config.ErrorStatus("failed to get user", http.StatusInternalServerError, w, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		config.ErrorStatus("Invalid email or password", http.StatusUnauthorized, w, nil)
		return
	}

	u.respondWithToken(w, http.StatusOK, *user)
}

// ProfileHandler returns the authenticated user without the password hash
func (u User) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.UserFromContext(r.Context())
	if !ok {
		config.ErrorStatus("Not authorized, no token", http.StatusUnauthorized, w, nil)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfileHandler changes the name and email of the authenticated user
func (u User) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.UserFromContext(r.Context())
	if !ok {
		config.ErrorStatus("Not authorized, no token", http.StatusUnauthorized, w, nil)
		return
	}
	var req models.ProfileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	updated := *user
	set := bson.M{}
	if name := strings.TrimSpace(req.FullName); name != "" {
		set["fullName"] = name
		updated.FullName = name
	}
	if !u.applyEmail(ctx, w, req.Email, &updated, set) {
		return
	}
	u.save(ctx, w, updated, set)
}

// UpdateAccountHandler changes the email or password of the authenticated user.
// A new password needs the current one.
func (u User) UpdateAccountHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := api.UserFromContext(r.Context())
	if !ok {
		config.ErrorStatus("Not authorized, no token", http.StatusUnauthorized, w, nil)
		return
	}
	var req models.AccountUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	if req.NewPassword != "" || req.CurrentPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
			config.ErrorStatus("Current password is incorrect", http.StatusUnauthorized, w, nil)
			return
		}
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	updated := *user
	set := bson.M{}
	if req.NewPassword != "" {
		if len([]rune(req.NewPassword)) < MinPasswordLength {
			config.ValidationErrorStatus("account validation failed",
				map[string]string{"newPassword": "the length must be no less than 8"}, w, nil)
			return
		}
		hashedPassword, err := HashPassword(req.NewPassword)
		if err != nil {
			config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
			return
		}
		set["password"] = hashedPassword
		updated.Password = hashedPassword
	}
	if !u.applyEmail(ctx, w, req.Email, &updated, set) {
		return
	}
	u.save(ctx, w, updated, set)
}

// applyEmail stages an email change, writing the error response and returning
// false when the address is malformed or already used by someone else
func (u User) applyEmail(ctx context.Context, w http.ResponseWriter, raw string, updated *models.User, set bson.M) bool {
	email := normalizeEmail(raw)
	if email == "" || email == updated.Email {
		return true
	}
	if !emailPattern.MatchString(email) {
		config.ValidationErrorStatus("email validation failed", map[string]string{"email": "must be a valid email address"}, w, nil)
		return false
	}
	taken, err := u.emailTaken(ctx, email, updated.ID)
	if err != nil {
		config.ErrorStatus("failed to check email", http.StatusInternalServerError, w, err)
		return false
	}
	if taken {
		config.ErrorStatusWithCode("Email already registered", EmailTakenCode, http.StatusBadRequest, w, nil)
		return false
	}
	set["email"] = email
	updated.Email = email
	return true
}

func (u User) save(ctx context.Context, w http.ResponseWriter, updated models.User, set bson.M) {
	if len(set) > 0 {
		updated.UpdatedAt = u.now()
		set["updatedAt"] = updated.UpdatedAt
		_, err := u.DB.UpdateOne(ctx, bson.M{"_id": updated.ID}, bson.M{"$set": set})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				config.ErrorStatusWithCode("Email already registered", EmailTakenCode, http.StatusBadRequest, w, err)
				return
			}
			config.ErrorStatus("failed to update user", http.StatusInternalServerError, w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, models.AuthResponse{
		ID:       updated.ID.Hex(),
		FullName: updated.FullName,
		Email:    updated.Email,
	})
}

func (u User) emailTaken(ctx context.Context, email string, except primitive.ObjectID) (bool, error) {
	filter := bson.M{"email": email}
	if !except.IsZero() {
		filter["_id"] = bson.M{"$ne": except}
	}
	count, err := u.DB.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (u User) respondWithToken(w http.ResponseWriter, status int, user models.User) {
	token, err := u.Auth.IssueToken(user.ID.Hex())
	if err != nil {
		config.ErrorStatus("failed to issue token", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, status, models.AuthResponse{
		ID:       user.ID.Hex(),
		FullName: user.FullName,
		Email:    user.Email,
		Token:    token,
	})
}
