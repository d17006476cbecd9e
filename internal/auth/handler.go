package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"bookstack-backend/internal/engine"
	"bookstack-backend/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	store      *store.Store
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthHandler creates a new AuthHandler. Non-positive TTLs fall back
// to the package defaults.
func NewAuthHandler(s *store.Store, jwtSecret string, accessTTL, refreshTTL time.Duration) *AuthHandler {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &AuthHandler{
		store:      s,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.Email == "" || body.Password == "" {
		return engine.UnauthorizedError("Email and password are required")
	}

	ctx := c.Context()

	user, err := h.findUserByEmail(ctx, body.Email)
	if err != nil {
		return engine.UnauthorizedError("Invalid email or password")
	}

	if !toBool(user["active"]) {
		return engine.UnauthorizedError("Account is disabled")
	}

	passwordHash, _ := user["password_hash"].(string)
	if !CheckPassword(body.Password, passwordHash) {
		return engine.UnauthorizedError("Invalid email or password")
	}

	userID := fmt.Sprintf("%v", user["id"])
	roles, _ := h.store.Dialect.ScanArray(user["roles"])

	pair, err := h.generateTokenPair(ctx, userID, roles)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": pair})
}

// Register handles POST /api/auth/register. New accounts get the "user" role.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	body.Email = strings.TrimSpace(strings.ToLower(body.Email))
	if body.Email == "" || !strings.Contains(body.Email, "@") {
		return engine.NewAppError("VALIDATION_FAILED", 422, "A valid email is required")
	}
	if len(body.Password) < 8 {
		return engine.NewAppError("VALIDATION_FAILED", 422, "Password must be at least 8 characters")
	}

	hash, err := HashPassword(body.Password)
	if err != nil {
		return engine.NewAppError("INTERNAL_ERROR", 500, "Failed to hash password")
	}

	ctx := c.Context()
	id := uuid.New().String()
	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		"INSERT INTO _users (id, email, password_hash, roles, active) VALUES (%s, %s, %s, %s, %s)",
		pb.Add(id), pb.Add(body.Email), pb.Add(hash),
		pb.Add(h.store.Dialect.ArrayParam([]string{"user"})), pb.Add(true))
	if _, err := store.Exec(ctx, h.store.DB, sqlStr, pb.Params()...); err != nil {
		if errors.Is(h.store.Dialect.MapError(err), store.ErrUniqueViolation) {
			return engine.ConflictError("An account with this email already exists")
		}
		return fmt.Errorf("register user: %w", err)
	}

	pair, err := h.generateTokenPair(ctx, id, []string{"user"})
	if err != nil {
		return err
	}
	return c.Status(201).JSON(fiber.Map{"data": pair})
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.RefreshToken == "" {
		return engine.UnauthorizedError("Refresh token is required")
	}

	ctx := c.Context()
	d := h.store.Dialect

	pb := d.NewParamBuilder()
	row, err := store.QueryRow(ctx, h.store.DB, fmt.Sprintf(
		`SELECT rt.id, rt.user_id, rt.expires_at, u.roles, u.active
		 FROM _refresh_tokens rt
		 JOIN _users u ON u.id = rt.user_id
		 WHERE rt.token = %s`, pb.Add(body.RefreshToken)), pb.Params()...)
	if err != nil {
		return engine.UnauthorizedError("Invalid refresh token")
	}

	if time.Now().After(toTime(row["expires_at"])) {
		h.deleteRefreshToken(ctx, body.RefreshToken)
		return engine.UnauthorizedError("Refresh token expired")
	}

	if !toBool(row["active"]) {
		return engine.UnauthorizedError("Account is disabled")
	}

	// Rotation: the used token is gone either way.
	h.deleteRefreshToken(ctx, body.RefreshToken)

	userID := fmt.Sprintf("%v", row["user_id"])
	roles, _ := d.ScanArray(row["roles"])

	pair, err := h.generateTokenPair(ctx, userID, roles)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": pair})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&body); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid request body")
	}
	if body.RefreshToken == "" {
		return engine.UnauthorizedError("Refresh token is required")
	}

	h.deleteRefreshToken(c.Context(), body.RefreshToken)

	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	rctx := GetUser(c)
	if rctx.IsAnonymous() {
		return engine.UnauthorizedError("Missing auth token")
	}

	pb := h.store.Dialect.NewParamBuilder()
	row, err := store.QueryRow(c.Context(), h.store.DB, fmt.Sprintf(
		"SELECT id, email, roles, active, created_at FROM _users WHERE id = %s",
		pb.Add(rctx.Subject)), pb.Params()...)
	if err != nil {
		return engine.UnauthorizedError("Unknown user")
	}

	roles, _ := h.store.Dialect.ScanArray(row["roles"])
	return c.JSON(fiber.Map{"data": fiber.Map{
		"id":         row["id"],
		"email":      row["email"],
		"roles":      roles,
		"active":     toBool(row["active"]),
		"created_at": row["created_at"],
	}})
}

// RegisterAuthRoutes registers auth routes on the given Fiber app.
func RegisterAuthRoutes(app *fiber.App, h *AuthHandler, secret string) {
	grp := app.Group("/api/auth")
	grp.Post("/login", h.Login)
	grp.Post("/register", h.Register)
	grp.Post("/refresh", h.Refresh)
	grp.Post("/logout", h.Logout)
	grp.Get("/me", Authenticate(secret), h.Me)
}

// --- helpers ---

func (h *AuthHandler) findUserByEmail(ctx context.Context, email string) (map[string]any, error) {
	pb := h.store.Dialect.NewParamBuilder()
	return store.QueryRow(ctx, h.store.DB, fmt.Sprintf(
		"SELECT id, email, password_hash, roles, active FROM _users WHERE email = %s",
		pb.Add(email)), pb.Params()...)
}

func (h *AuthHandler) deleteRefreshToken(ctx context.Context, token string) {
	pb := h.store.Dialect.NewParamBuilder()
	_, _ = store.Exec(ctx, h.store.DB, fmt.Sprintf(
		"DELETE FROM _refresh_tokens WHERE token = %s", pb.Add(token)), pb.Params()...)
}

func (h *AuthHandler) generateTokenPair(ctx context.Context, userID string, roles []string) (*TokenPair, error) {
	accessToken, err := GenerateAccessToken(userID, roles, h.jwtSecret, h.accessTTL)
	if err != nil {
		return nil, engine.NewAppError("INTERNAL_ERROR", 500, "Failed to generate access token")
	}

	refreshToken := GenerateRefreshToken()
	expiresAt := time.Now().Add(h.refreshTTL)

	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		"INSERT INTO _refresh_tokens (id, user_id, token, expires_at) VALUES (%s, %s, %s, %s)",
		pb.Add(uuid.New().String()), pb.Add(userID), pb.Add(refreshToken),
		pb.Add(expiresAt.UTC().Format(time.RFC3339)))
	if _, err := store.Exec(ctx, h.store.DB, sqlStr, pb.Params()...); err != nil {
		return nil, engine.NewAppError("INTERNAL_ERROR", 500, "Failed to store refresh token")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func toBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	case int:
		return val != 0
	case float64:
		return val != 0
	default:
		return false
	}
}

func toTime(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, val); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
