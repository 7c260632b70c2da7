// Package services contains the controller's business operations. This file
// implements UserService: registration, login and bearer token checks.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophlocker/internal/common"
	"github.com/dmitrijs2005/gophlocker/internal/logging"
	"github.com/dmitrijs2005/gophlocker/internal/server/access"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
	"github.com/dmitrijs2005/gophlocker/internal/server/repositories/repomanager"
)

// UserService provides account operations:
// - Register: create users with a sealed password and optional PIN
// - Login: verify credentials and replace the user's live token
// - Authenticate: resolve a bearer token to its user
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	scheme      access.CredentialScheme
	sessions    access.SessionStore
	jwtSecret   []byte
	log         logging.Logger
}

// NewUserService constructs a UserService. Sessions live in the users table.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, scheme access.CredentialScheme, secret []byte, log logging.Logger) *UserService {
	if log == nil {
		log = logging.Nop{}
	}
	return &UserService{
		db:          db,
		repomanager: m,
		scheme:      scheme,
		sessions:    access.NewUserSessions(m.Users(db)),
		jwtSecret:   secret,
		log:         log,
	}
}

// Register creates a user. code is optional; when given it must be four
// digits. A taken username is common.ErrConflict.
func (s *UserService) Register(ctx context.Context, username, password, code string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", common.ErrValidation)
	}
	if code != "" && !common.IsPin(code) {
		return nil, fmt.Errorf("%w: code must be %d digits", common.ErrValidation, common.PinLength)
	}

	user, err := s.seal(models.User{UserName: username, Password: password, PinCode: code})
	if err != nil {
		return nil, err
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user", u.ID, "username", u.UserName)
	return u, nil
}

// Login checks the password and issues a new token, replacing any token
// issued before.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.repomanager.Users(s.db).GetByUserName(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", fmt.Errorf("%w: invalid credentials", common.ErrUnauthenticated)
		}
		return "", fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}

	if !s.scheme.Verify(user.Password, password) {
		return "", fmt.Errorf("%w: invalid credentials", common.ErrUnauthenticated)
	}

	token, err := access.GenerateToken(user.UserName, s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrInternal, err)
	}
	if err := s.sessions.Issue(ctx, user.ID, token); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}

	s.log.Info(ctx, "user logged in", "user", user.ID)
	return token, nil
}

// Authenticate returns the user holding token. The token must carry a valid
// signature and still be the user's live token.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", common.ErrUnauthenticated)
	}

	name, err := access.UserNameFromToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	user, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrUnauthenticated) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}
	if user.UserName != name {
		return nil, fmt.Errorf("%w: token subject mismatch", common.ErrUnauthenticated)
	}
	return user, nil
}

func (s *UserService) seal(u models.User) (models.User, error) {
	var err error
	if u.Password, err = s.scheme.Seal(u.Password); err != nil {
		return u, fmt.Errorf("%w: seal password: %w", common.ErrInternal, err)
	}
	if u.PinCode != "" {
		if u.PinCode, err = s.scheme.Seal(u.PinCode); err != nil {
			return u, fmt.Errorf("%w: seal code: %w", common.ErrInternal, err)
		}
	}
	return u, nil
}

// DemoUsers are the accounts created on an empty database.
var DemoUsers = []models.User{
	{UserName: "adam", Password: "pass", PinCode: "1111"},
	{UserName: "ewa", Password: "pass", PinCode: "2222"},
}

// EnsureDefaults seeds the demo users and the default locker bank into an
// empty database, sealing credentials with the active scheme.
func (s *UserService) EnsureDefaults(ctx context.Context) error {
	d := repomanager.Defaults{Lockers: repomanager.DefaultLockers()}
	for _, u := range DemoUsers {
		sealed, err := s.seal(u)
		if err != nil {
			return err
		}
		d.Users = append(d.Users, sealed)
	}

	if err := s.repomanager.Seed(ctx, s.db, d); err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}
	return nil
}
