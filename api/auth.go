package api

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/careerhub/internal/notify"
	"github.com/garnizeh/careerhub/pkg/models"
	"github.com/garnizeh/careerhub/pkg/repository"
)

const (
	minPasswordLen = 8
	resetCodeTTL   = 5 * time.Minute
)

type AuthHandler struct {
	userRepo   repository.UserRepo
	tokenRepo  repository.TokenRepo
	codes      notify.CodeSender
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
	bcryptCost int
}

// NewAuthHandler creates a new AuthHandler with required dependencies. A nil
// CodeSender logs reset codes.
func NewAuthHandler(ur repository.UserRepo, tr repository.TokenRepo, codes notify.CodeSender, jwtSecret string, accessTTL, refreshTTL time.Duration, bcryptCost int) *AuthHandler {
	if codes == nil {
		codes = notify.LogCodeSender{Logger: logger}
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthHandler{
		userRepo:   ur,
		tokenRepo:  tr,
		codes:      codes,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		bcryptCost: bcryptCost,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type authResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         *models.User `json:"user"`
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func resetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// issueTokens signs an access token and stores a new refresh token for u.
func (h *AuthHandler) issueTokens(ctx context.Context, u *models.User) (*authResponse, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"email":   u.Email,
		"role":    u.Role,
		"iat":     now.Unix(),
		"exp":     now.Add(h.accessTTL).Unix(),
	})
	access, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	refresh, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	rt := &models.RefreshToken{
		UserID:    u.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: now.Add(h.refreshTTL).UnixMilli(),
		Created:   now.UnixMilli(),
	}
	if err := h.tokenRepo.CreateRefreshToken(ctx, rt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &authResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(h.accessTTL / time.Second),
		User:         u,
	}, nil
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "Missing fields", http.StatusBadRequest)
		return
	}
	if !strings.Contains(req.Email, "@") {
		http.Error(w, "Invalid email", http.StatusBadRequest)
		return
	}
	if len(req.Password) < minPasswordLen {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	switch role {
	case "":
		role = models.RoleUser
	case models.RoleUser, models.RoleBusiness:
	default:
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	existing, err := h.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		http.Error(w, "Error creating user", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		http.Error(w, "Email already registered", http.StatusConflict)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	id, err := h.userRepo.CreateUser(ctx, &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
	})
	if errors.Is(err, repository.ErrConflict) {
		http.Error(w, "Email already registered", http.StatusConflict)
		return
	}
	if err != nil {
		logger.Error("create user", slog.Any("err", err))
		http.Error(w, "Error creating user", http.StatusInternalServerError)
		return
	}

	u, err := h.userRepo.GetByID(ctx, id)
	if err != nil || u == nil {
		http.Error(w, "Error creating user", http.StatusInternalServerError)
		return
	}
	resp, err := h.issueTokens(ctx, u)
	if err != nil {
		logger.Error("issue tokens", slog.Any("err", err))
		http.Error(w, "Error signing token", http.StatusInternalServerError)
		return
	}
	logger.Info("user registered", slog.Int64("user_id", id), slog.String("role", role))
	writeJSON(w, resp, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Missing fields", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	u, err := h.userRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil || u == nil || !u.IsActive {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := h.userRepo.TouchLastLogin(ctx, u.ID); err != nil {
		logger.Warn("touch last login", slog.Int64("user_id", u.ID), slog.Any("err", err))
	}
	resp, err := h.issueTokens(ctx, u)
	if err != nil {
		logger.Error("issue tokens", slog.Any("err", err))
		http.Error(w, "Error signing token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, resp, http.StatusOK)
}

// Refresh rotates a refresh token: the presented one is deleted and a new pair issued.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	hash := hashToken(req.RefreshToken)
	rt, err := h.tokenRepo.GetRefreshToken(ctx, hash)
	if err != nil || rt == nil {
		http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}
	if err := h.tokenRepo.DeleteRefreshToken(ctx, hash); err != nil {
		logger.Warn("delete refresh token", slog.Any("err", err))
	}
	if rt.ExpiresAt <= nowMillis() {
		http.Error(w, "Refresh token expired", http.StatusUnauthorized)
		return
	}

	u, err := h.userRepo.GetByID(ctx, rt.UserID)
	if err != nil || u == nil || !u.IsActive {
		http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}
	resp, err := h.issueTokens(ctx, u)
	if err != nil {
		logger.Error("issue tokens", slog.Any("err", err))
		http.Error(w, "Error signing token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, resp, http.StatusOK)
}

// Logout revokes the given refresh token, or every token of the caller.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req refreshRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	var err error
	if req.RefreshToken != "" {
		err = h.tokenRepo.DeleteRefreshToken(r.Context(), hashToken(req.RefreshToken))
	} else {
		err = h.tokenRepo.DeleteUserRefreshTokens(r.Context(), userID)
	}
	if err != nil {
		http.Error(w, "Error signing out", http.StatusInternalServerError)
		return
	}
	writeMessage(w, "signed out", http.StatusOK)
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	u, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		http.Error(w, "Error loading session", http.StatusInternalServerError)
		return
	}
	if u == nil || !u.IsActive {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]any{"user": u}, http.StatusOK)
}

// ForgotPassword always answers 200 so callers cannot probe for accounts.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Email) == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	const msg = "If the email is registered, a reset code has been sent"

	ctx := r.Context()
	u, err := h.userRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil || u == nil || !u.IsActive {
		writeMessage(w, msg, http.StatusOK)
		return
	}

	code, err := resetCode()
	if err != nil {
		http.Error(w, "Error generating code", http.StatusInternalServerError)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), h.bcryptCost)
	if err != nil {
		http.Error(w, "Error generating code", http.StatusInternalServerError)
		return
	}
	now := time.Now()
	if _, err := h.tokenRepo.CreatePasswordReset(ctx, &models.PasswordReset{
		UserID:    u.ID,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(resetCodeTTL).UnixMilli(),
		Created:   now.UnixMilli(),
	}); err != nil {
		logger.Error("store reset code", slog.Int64("user_id", u.ID), slog.Any("err", err))
		http.Error(w, "Error generating code", http.StatusInternalServerError)
		return
	}
	if err := h.codes.SendResetCode(ctx, u.Email, code); err != nil {
		logger.Error("send reset code", slog.Int64("user_id", u.ID), slog.Any("err", err))
	}
	writeMessage(w, msg, http.StatusOK)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		http.Error(w, "Missing fields", http.StatusBadRequest)
		return
	}
	if len(req.NewPassword) < minPasswordLen {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	u, err := h.userRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil || u == nil {
		http.Error(w, "Invalid or expired code", http.StatusBadRequest)
		return
	}
	pr, err := h.tokenRepo.GetActivePasswordReset(ctx, u.ID, nowMillis())
	if err != nil || pr == nil || bcrypt.CompareHashAndPassword([]byte(pr.CodeHash), []byte(req.Code)) != nil {
		http.Error(w, "Invalid or expired code", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), h.bcryptCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}
	if err := h.userRepo.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
		http.Error(w, "Error updating password", http.StatusInternalServerError)
		return
	}
	if err := h.tokenRepo.MarkPasswordResetUsed(ctx, pr.ID); err != nil {
		logger.Warn("mark reset used", slog.Int64("reset_id", pr.ID), slog.Any("err", err))
	}
	if err := h.tokenRepo.DeleteUserRefreshTokens(ctx, u.ID); err != nil {
		logger.Warn("revoke refresh tokens", slog.Int64("user_id", u.ID), slog.Any("err", err))
	}
	writeMessage(w, "Password has been reset", http.StatusOK)
}
