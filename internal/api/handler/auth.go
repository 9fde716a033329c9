package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/controlfit/controlfit/internal/api/response"
	"github.com/controlfit/controlfit/internal/store"
	"github.com/controlfit/controlfit/pkg/models"
)

const (
	tokenPrefixLen  = 8
	sessionLifetime = 30 * 24 * time.Hour
	minPasswordLen  = 8
)

// NewRegisterHandler returns the handler for POST /api/v1/auth/register.
func NewRegisterHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || !strings.Contains(req.Email, "@") {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "email must be a valid address", nil)
			return
		}
		if len(req.Password) < minPasswordLen {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "password must be at least 8 characters", nil)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to hash password", nil)
			return
		}

		now := time.Now().UTC()
		user := &models.User{
			ID:           uuid.New(),
			Email:        req.Email,
			PasswordHash: string(hash),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := st.CreateUser(r.Context(), user); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				response.Error(w, http.StatusConflict, "EMAIL_TAKEN", "An account with this email already exists", nil)
				return
			}
			storeError(w, err)
			return
		}

		response.Created(w, user)
	}
}

// NewLoginHandler returns the handler for POST /api/v1/auth/login. On success
// it issues an opaque session token; only its bcrypt hash is stored.
func NewLoginHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		user, err := st.GetUserByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
				return
			}
			storeError(w, err)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
			return
		}

		rawToken, err := generateToken()
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate token", nil)
			return
		}
		tokenHash, err := bcrypt.GenerateFromPassword([]byte(rawToken), bcrypt.DefaultCost)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to hash token", nil)
			return
		}

		now := time.Now().UTC()
		token := &models.SessionToken{
			ID:          uuid.New(),
			UserID:      user.ID,
			TokenHash:   string(tokenHash),
			TokenPrefix: rawToken[:tokenPrefixLen],
			ExpiresAt:   now.Add(sessionLifetime),
			CreatedAt:   now,
		}
		if err := st.CreateSessionToken(r.Context(), token); err != nil {
			storeError(w, err)
			return
		}

		response.JSON(w, map[string]any{
			"token":      rawToken,
			"expires_at": token.ExpiresAt,
			"user":       user,
		})
	}
}

// NewMeHandler returns the handler for GET /api/v1/auth/me.
func NewMeHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		user, err := st.GetUser(r.Context(), userID)
		if err != nil {
			storeError(w, err)
			return
		}
		response.JSON(w, user)
	}
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "cft_" + hex.EncodeToString(b), nil
}
