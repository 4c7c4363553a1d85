package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/linesmerrill/legal-case-api/config"
	"github.com/linesmerrill/legal-case-api/databases"
	"github.com/linesmerrill/legal-case-api/models"
)

// ErrInvalidToken is returned for any token that fails verification
var ErrInvalidToken = errors.New("invalid token")

type userContextKey struct{}

// Authenticator issues and verifies the HS256 session tokens
type Authenticator struct {
	Secret []byte
	TTL    time.Duration
	DB     databases.UserDatabase
	Now    func() time.Time
}

// NewAuthenticator builds an Authenticator from the project config
func NewAuthenticator(c *config.Config, db databases.UserDatabase) Authenticator {
	return Authenticator{
		Secret: []byte(c.JWTSecret),
		TTL:    c.TokenTTL,
		DB:     db,
	}
}

func (a Authenticator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// IssueToken signs a token carrying the user id
func (a Authenticator) IssueToken(userID string) (string, error) {
	now := a.now()
	claims := jwt.MapClaims{
		"id":  userID,
		"iat": now.Unix(),
		"exp": now.Add(a.TTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.Secret)
}

// ParseToken verifies a token and returns the user id it carries
func (a Authenticator) ParseToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return a.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return "", ErrInvalidToken
	}
	return id, nil
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func (a Authenticator) authenticate(r *http.Request) (*models.User, error) {
	id, err := a.ParseToken(bearer(r))
	if err != nil {
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidToken
	}

	ctx, cancel := WithQueryTimeout(r.Context())
	defer cancel()
	return a.DB.FindOne(ctx, bson.M{"_id": oid})
}

// Middleware rejects requests without a valid bearer token and stores the
// token's user on the request context
func (a Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearer(r) == "" {
			config.ErrorStatus("Not authorized, no token", http.StatusUnauthorized, w, nil)
			return
		}
		user, err := a.authenticate(r)
		if err != nil {
			zap.S().Errorw("unauthorized", "url", r.URL, "error", err)
			config.ErrorStatus("Not authorized, token failed", http.StatusUnauthorized, w, nil)
			return
		}
		zap.S().Debugf("user %s authenticated", user.ID.Hex())
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Optional attaches the user when a valid token is present and otherwise
// lets the request through anonymously
func (a Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearer(r) != "" {
			if user, err := a.authenticate(r); err == nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser stores the authenticated user on ctx
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext returns the user stored by Middleware or Optional
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*models.User)
	return u, ok && u != nil
}
