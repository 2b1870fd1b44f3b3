package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"tms/internal/domain"
	"tms/internal/models"

	"github.com/rs/zerolog"
)

// DefaultUsers is the built-in operator table.
func DefaultUsers() []models.User {
	return []models.User{
		{ID: "u1", Username: "majdi", FullName: "مجدي الشريف", Role: models.RoleDirector},
		{ID: "u2", Username: "aziz", FullName: "عبدالعزيز القماطي", Role: models.RoleHeadArchivist},
		{ID: "u3", Username: "aribi", FullName: "محمد عريبي", Role: models.RoleArchivist},
		{ID: "u4", Username: "hossam", FullName: "حسام مسعود", Role: models.RoleArchivist},
		{ID: "u5", Username: "berish", FullName: "عبدالسلام بريش", Role: models.RoleArchivist},
	}
}

// StaticCredentials accepts any known username with one shared password.
// It is a placeholder boundary, not a security mechanism.
type StaticCredentials struct {
	users    map[string]models.User
	password string
}

func NewStaticCredentials(users []models.User, password string) *StaticCredentials {
	m := make(map[string]models.User, len(users))
	for _, u := range users {
		m[strings.ToLower(u.Username)] = u
	}
	return &StaticCredentials{users: m, password: password}
}

func (c *StaticCredentials) Verify(username, password string) (*models.User, error) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(c.password)) != 1 {
		return nil, ErrInvalidCredentials
	}
	u, ok := c.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// AuthService keeps the single current session user. The session is mirrored
// to models.KeyUser so it survives restarts.
type AuthService struct {
	verifier domain.CredentialVerifier
	store    domain.SnapshotStore
	logger   *zerolog.Logger

	mu      sync.Mutex
	current *models.User
	loaded  bool
}

func NewAuthService(verifier domain.CredentialVerifier, store domain.SnapshotStore, logger *zerolog.Logger) *AuthService {
	return &AuthService{
		verifier: verifier,
		store:    store,
		logger:   logger,
	}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.verifier.Verify(username, password)
	if err != nil {
		s.logger.Warn().Str("username", username).Msg("login rejected")
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = user
	s.loaded = true

	data, err := json.Marshal(user)
	if err == nil {
		err = s.store.Save(ctx, models.KeyUser, data)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("session write failed")
	}

	s.logger.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("user logged in")
	out := *user
	return &out, nil
}

func (s *AuthService) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.logger.Info().Str("username", s.current.Username).Msg("user logged out")
	}
	s.current = nil
	s.loaded = true
	if err := s.store.Delete(ctx, models.KeyUser); err != nil {
		s.logger.Error().Err(err).Msg("session delete failed")
	}
	return nil
}

// CurrentUser returns nil, nil when nobody is logged in.
func (s *AuthService) CurrentUser(ctx context.Context) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		data, err := s.store.Load(ctx, models.KeyUser)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		if data != nil {
			var user models.User
			if err := json.Unmarshal(data, &user); err != nil {
				return nil, fmt.Errorf("decode session: %w", err)
			}
			s.current = &user
		}
		s.loaded = true
	}

	if s.current == nil {
		return nil, nil
	}
	out := *s.current
	return &out, nil
}
