// Package session owns the authenticated learner context: login, the
// persisted active session and its expiry.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexanderramin/coursetrack/internal/clock"
	"github.com/alexanderramin/coursetrack/internal/db"
	"github.com/alexanderramin/coursetrack/internal/domain"
	"github.com/alexanderramin/coursetrack/internal/repository"
)

// Authenticator exchanges credentials for an access token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// Manager creates, loads and invalidates the active session.
type Manager struct {
	uow      db.UnitOfWork
	sessions repository.SessionRepo
	auth     Authenticator
	clock    clock.Clock
	log      *zap.Logger
}

func NewManager(uow db.UnitOfWork, sessions repository.SessionRepo, auth Authenticator, c clock.Clock, log *zap.Logger) *Manager {
	if c == nil {
		c = clock.Real()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{uow: uow, sessions: sessions, auth: auth, clock: c, log: log}
}

// Login authenticates against the LMS and replaces any stored session.
func (m *Manager) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	if m.auth == nil {
		return nil, errors.New("login: no authenticator configured")
	}
	token, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	s, err := m.FromToken(token)
	if err != nil {
		return nil, err
	}
	if s.Email == "" {
		s.Email = email
	}
	if err := m.store(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// LoginWithToken stores a session for a token obtained elsewhere.
func (m *Manager) LoginWithToken(ctx context.Context, token string) (*domain.Session, error) {
	s, err := m.FromToken(token)
	if err != nil {
		return nil, err
	}
	if err := m.store(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// FromToken builds an unsaved session from a raw access token. Tokens that
// are already expired are rejected.
func (m *Manager) FromToken(token string) (*domain.Session, error) {
	claims, err := ParseClaims(token)
	if err != nil {
		return nil, err
	}
	now := m.clock.Now().UTC()
	s := &domain.Session{
		ID:             uuid.New().String(),
		UserID:         claims.LearnerID(),
		Email:          claims.Email,
		OrganizationID: claims.OrganizationID,
		Role:           claims.Role,
		AccessToken:    token,
		CreatedAt:      now,
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time.UTC()
		s.ExpiresAt = &exp
	}
	if s.Expired(now) {
		return nil, ErrExpired
	}
	return s, nil
}

func (m *Manager) store(ctx context.Context, s *domain.Session) error {
	err := m.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txSessions := repository.NewSQLiteSessionRepo(tx)
		if err := txSessions.DeleteAll(ctx); err != nil {
			return err
		}
		return txSessions.Save(ctx, s)
	})
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	m.log.Info("session started",
		zap.String("session.id", s.ID),
		zap.String("user.id", s.UserID),
		zap.String("organization.id", s.OrganizationID),
	)
	return nil
}

// Current returns the active session. An expired session is deleted and
// reported as ErrExpired.
func (m *Manager) Current(ctx context.Context) (*domain.Session, error) {
	s, err := m.sessions.GetActive(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if s.Expired(m.clock.Now()) {
		if err := m.sessions.Delete(ctx, s.ID); err != nil {
			m.log.Warn("deleting expired session", zap.String("session.id", s.ID), zap.Error(err))
		}
		m.log.Info("session expired", zap.String("session.id", s.ID), zap.Time("expires_at", *s.ExpiresAt))
		return nil, ErrExpired
	}
	return s, nil
}

// Token returns the active session's access token. It lets a Manager act
// as the GraphQL client's token source.
func (m *Manager) Token(ctx context.Context) (string, error) {
	s, err := m.Current(ctx)
	if err != nil {
		return "", err
	}
	return s.AccessToken, nil
}

// Logout removes every stored session.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.sessions.DeleteAll(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Remaining reports how long the session stays valid. Sessions without an
// expiry report zero and false.
func (m *Manager) Remaining(s *domain.Session) (time.Duration, bool) {
	if s == nil || s.ExpiresAt == nil {
		return 0, false
	}
	return s.ExpiresAt.Sub(m.clock.Now()), true
}
