package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/tikshop/domain"
	"github.com/fastygo/tikshop/repository"
)

const (
	DefaultTimeout = 5 * time.Minute
	TickInterval   = time.Second
)

type Config struct {
	PasswordHash string
	Timeout      time.Duration
	JWTSecret    string
	Issuer       string
}

// LoginResult is handed back to the admin client after a successful password check.
type LoginResult struct {
	Token     string        `json:"token"`
	SessionID string        `json:"session_id"`
	ExpiresAt time.Time     `json:"expires_at"`
	Remaining time.Duration `json:"remaining"`
}

// Claims binds a bearer token to one admin session.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Guard owns the admin session lifecycle.
type Guard struct {
	sessions repository.SessionRepository
	cfg      Config
	clock    clockwork.Clock
	logger   *zap.Logger
}

func NewGuard(sessions repository.SessionRepository, cfg Config, clock clockwork.Clock, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Guard{
		sessions: sessions,
		cfg:      cfg,
		clock:    clock,
		logger:   logger,
	}
}

func (g *Guard) Timeout() time.Duration {
	return g.cfg.Timeout
}

// Login checks the shared admin password and starts a session.
func (g *Guard) Login(ctx context.Context, password string) (*LoginResult, error) {
	if password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(g.cfg.PasswordHash), []byte(password)); err != nil {
		g.logger.Warn("admin login rejected")
		return nil, domain.ErrInvalidCredentials
	}

	sess, err := g.StartSession(ctx)
	if err != nil {
		return nil, err
	}

	token, err := g.issueToken(sess)
	if err != nil {
		_ = g.sessions.Delete(ctx, sess.ID)
		return nil, domain.WrapError(domain.ErrCodeInternal, "could not issue token", err)
	}

	g.logger.Info("admin session started", zap.String("session_id", sess.ID))
	return &LoginResult{
		Token:     token,
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt(g.cfg.Timeout),
		Remaining: g.cfg.Timeout,
	}, nil
}

// StartSession records the current instant as a new session start.
func (g *Guard) StartSession(ctx context.Context) (*domain.AdminSession, error) {
	sess := &domain.AdminSession{
		ID:        uuid.NewString(),
		StartedAt: g.clock.Now(),
	}
	if err := g.sessions.Save(ctx, sess, g.cfg.Timeout); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "could not start session", err)
	}
	return sess, nil
}

// IsAuthenticated reports whether the session exists and has not expired.
func (g *Guard) IsAuthenticated(ctx context.Context, id string) bool {
	sess, err := g.load(ctx, id)
	if err != nil {
		return false
	}
	return sess.Valid(g.clock.Now(), g.cfg.Timeout)
}

// RemainingTime is max(0, timeout - elapsed); zero for unknown sessions.
func (g *Guard) RemainingTime(ctx context.Context, id string) time.Duration {
	sess, err := g.load(ctx, id)
	if err != nil {
		return 0
	}
	return sess.Remaining(g.clock.Now(), g.cfg.Timeout)
}

// ValidateSession must run before every admin action. A stale record is
// cleared before the negative result is returned.
func (g *Guard) ValidateSession(ctx context.Context, id string) error {
	sess, err := g.load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrUnauthorized
		}
		return err
	}
	if !sess.Valid(g.clock.Now(), g.cfg.Timeout) {
		if err := g.sessions.Delete(ctx, id); err != nil {
			g.logger.Warn("failed to clear expired session", zap.String("session_id", id), zap.Error(err))
		}
		return domain.ErrSessionExpired
	}
	return nil
}

// EndSession clears the session record.
func (g *Guard) EndSession(ctx context.Context, id string) error {
	if err := g.sessions.Delete(ctx, id); err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "could not end session", err)
	}
	g.logger.Info("admin session ended", zap.String("session_id", id))
	return nil
}

// Watch reports the remaining time once per second. When it reaches zero the
// session is ended and Watch returns ErrSessionExpired.
func (g *Guard) Watch(ctx context.Context, id string, onTick func(time.Duration)) error {
	ticker := g.clock.NewTicker(TickInterval)
	defer ticker.Stop()

	report := func() bool {
		remaining := g.RemainingTime(ctx, id)
		if onTick != nil {
			onTick(remaining)
		}
		return remaining > 0
	}

	if !report() {
		return g.forceLogout(ctx, id)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if !report() {
				return g.forceLogout(ctx, id)
			}
		}
	}
}

func (g *Guard) forceLogout(ctx context.Context, id string) error {
	if err := g.sessions.Delete(ctx, id); err != nil {
		g.logger.Warn("forced logout failed", zap.String("session_id", id), zap.Error(err))
	}
	g.logger.Info("admin session expired", zap.String("session_id", id))
	return domain.ErrSessionExpired
}

// ParseToken verifies a bearer token and returns the session id it carries.
func (g *Guard) ParseToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", domain.ErrUnauthorized
	}
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(g.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid || claims.SessionID == "" {
		return "", domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", err)
	}
	return claims.SessionID, nil
}

func (g *Guard) issueToken(sess *domain.AdminSession) (string, error) {
	if g.cfg.JWTSecret == "" {
		return "", fmt.Errorf("jwt secret is empty")
	}
	claims := Claims{
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.cfg.Issuer,
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(sess.StartedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt(g.cfg.Timeout)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(g.cfg.JWTSecret))
}

func (g *Guard) load(ctx context.Context, id string) (*domain.AdminSession, error) {
	if id == "" {
		return nil, domain.ErrSessionNotFound
	}
	return g.sessions.Get(ctx, id)
}
