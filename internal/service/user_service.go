package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/vps-service/internal/auth"
	"github.com/spec-kit/vps-service/internal/config"
	"github.com/spec-kit/vps-service/internal/domain"
	"github.com/spec-kit/vps-service/internal/store"
	"github.com/spec-kit/vps-service/pkg/util"
)

// UserService manages accounts: registration, login, admin edits, balances.
type UserService struct {
	store     *store.FileStore
	lifecycle *LifecycleService
	tokens    *auth.TokenManager
	cfg       config.AuthConfig
	logger    *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	Store     *store.FileStore
	Lifecycle *LifecycleService
	Tokens    *auth.TokenManager
	Auth      config.AuthConfig
	Logger    *zap.Logger
}

// UserUpdateInput carries optional admin edits; nil fields are untouched.
type UserUpdateInput struct {
	Email    *string
	Role     *domain.Role
	Password *string
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		store:     deps.Store,
		lifecycle: deps.Lifecycle,
		tokens:    deps.Tokens,
		cfg:       deps.Auth,
		logger:    deps.Logger,
	}
}

// EnsureAdmin seeds the default admin account when the catalog has no users.
func (s *UserService) EnsureAdmin(ctx context.Context) error {
	if len(s.store.ListUsers()) > 0 {
		return nil
	}
	hash, err := auth.HashPassword("admin", s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	err = s.store.MutateUsers(func(users map[string]*domain.User) error {
		if len(users) > 0 {
			return nil
		}
		users["admin"] = &domain.User{
			Username:     "admin",
			Email:        "admin@svmpanel.com",
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			CreatedAt:    time.Now(),
			Theme:        "dark",
			Balance:      decimal.Zero,
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("seeded default admin account")
	return nil
}

// Register creates a new end-user account.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || email == "" || password == "" {
		return nil, util.NewValidationError("username, email and password required", nil)
	}
	hash, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    time.Now(),
		Theme:        "dark",
		Balance:      decimal.Zero,
	}
	err = s.store.MutateUsers(func(users map[string]*domain.User) error {
		if _, exists := users[username]; exists {
			return util.NewConflict("username already exists", nil)
		}
		for _, existing := range users {
			if existing.Email == email {
				return util.NewConflict("email already registered", nil)
			}
		}
		users[username] = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a token. Banned and suspended
// accounts cannot log in.
func (s *UserService) Login(ctx context.Context, username, password string) (*domain.User, string, time.Time, error) {
	user, ok := s.store.GetUser(username)
	if !ok {
		return nil, "", time.Time{}, util.NewUnauthorized("invalid username or password")
	}
	if user.Banned {
		return nil, "", time.Time{}, util.NewForbidden("account banned")
	}
	if user.Suspended {
		return nil, "", time.Time{}, util.NewForbidden("account suspended")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, util.NewUnauthorized("invalid username or password")
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.Username, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, expiresAt, nil
}

// UpdateProfile applies a user's own profile edits.
func (s *UserService) UpdateProfile(ctx context.Context, username string, email, theme, newPassword string) (*domain.User, error) {
	var updated *domain.User
	err := s.store.MutateUsers(func(users map[string]*domain.User) error {
		user, ok := users[username]
		if !ok {
			return util.NewNotFound("user", nil)
		}
		if email != "" {
			user.Email = email
		}
		if theme != "" {
			user.Theme = theme
		}
		if newPassword != "" {
			hash, err := auth.HashPassword(newPassword, s.cfg.BcryptCost)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AdminCreate creates an account with an explicit role.
func (s *UserService) AdminCreate(ctx context.Context, actor Actor, username, email, password string, role domain.Role) (*domain.User, error) {
	if !actor.Admin {
		return nil, util.NewForbidden("admin access required")
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, util.NewValidationError("invalid role", map[string]any{"role": role})
	}
	user, err := s.Register(ctx, username, email, password)
	if err != nil {
		return nil, err
	}
	if role == domain.RoleAdmin {
		err = s.store.MutateUsers(func(users map[string]*domain.User) error {
			users[username].Role = domain.RoleAdmin
			return nil
		})
		if err != nil {
			return nil, err
		}
		user.Role = domain.RoleAdmin
	}
	return user, nil
}

// AdminUpdate applies admin edits to an account. Demoting yourself is a
// CONFLICT so the panel cannot lose its last admin mid-session.
func (s *UserService) AdminUpdate(ctx context.Context, actor Actor, target string, input UserUpdateInput) (*domain.User, error) {
	if !actor.Admin {
		return nil, util.NewForbidden("admin access required")
	}
	if input.Role != nil && *input.Role != domain.RoleUser && *input.Role != domain.RoleAdmin {
		return nil, util.NewValidationError("invalid role", map[string]any{"role": *input.Role})
	}
	if input.Role != nil && *input.Role == domain.RoleUser && target == actor.Username {
		return nil, util.NewConflict("cannot demote yourself", nil)
	}

	var updated *domain.User
	err := s.store.MutateUsers(func(users map[string]*domain.User) error {
		user, ok := users[target]
		if !ok {
			return util.NewNotFound("user", map[string]any{"username": target})
		}
		if input.Email != nil {
			for name, existing := range users {
				if name != target && existing.Email == *input.Email {
					return util.NewConflict("email already exists", nil)
				}
			}
			user.Email = *input.Email
		}
		if input.Role != nil {
			user.Role = *input.Role
		}
		if input.Password != nil {
			hash, err := auth.HashPassword(*input.Password, s.cfg.BcryptCost)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetBanned flips the ban flag on an account.
func (s *UserService) SetBanned(ctx context.Context, actor Actor, target string, banned bool) error {
	if !actor.Admin {
		return util.NewForbidden("admin access required")
	}
	return s.store.MutateUsers(func(users map[string]*domain.User) error {
		user, ok := users[target]
		if !ok {
			return util.NewNotFound("user", map[string]any{"username": target})
		}
		user.Banned = banned
		return nil
	})
}

// SetSuspended flips the suspension flag on an account.
func (s *UserService) SetSuspended(ctx context.Context, actor Actor, target string, suspended bool) error {
	if !actor.Admin {
		return util.NewForbidden("admin access required")
	}
	return s.store.MutateUsers(func(users map[string]*domain.User) error {
		user, ok := users[target]
		if !ok {
			return util.NewNotFound("user", map[string]any{"username": target})
		}
		user.Suspended = suspended
		return nil
	})
}

// AddBalance credits a positive amount to the account balance.
func (s *UserService) AddBalance(ctx context.Context, actor Actor, target string, amount decimal.Decimal) (*domain.User, error) {
	if !actor.Admin {
		return nil, util.NewForbidden("admin access required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, util.NewValidationError("amount must be positive", nil)
	}

	var updated *domain.User
	err := s.store.MutateUsers(func(users map[string]*domain.User) error {
		user, ok := users[target]
		if !ok {
			return util.NewNotFound("user", map[string]any{"username": target})
		}
		user.Balance = user.Balance.Add(amount)
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an account after tearing down its instances. Admin accounts
// cannot be deleted.
func (s *UserService) Delete(ctx context.Context, actor Actor, target string) error {
	if !actor.Admin {
		return util.NewForbidden("admin access required")
	}
	user, ok := s.store.GetUser(target)
	if !ok {
		return util.NewNotFound("user", map[string]any{"username": target})
	}
	if user.IsAdmin() {
		return util.NewConflict("cannot delete an admin account", nil)
	}

	s.lifecycle.DeleteAllForOwner(ctx, actor, target)

	return s.store.MutateUsers(func(users map[string]*domain.User) error {
		delete(users, target)
		return nil
	})
}

// Get returns an account by username.
func (s *UserService) Get(username string) (*domain.User, error) {
	user, ok := s.store.GetUser(username)
	if !ok {
		return nil, util.NewNotFound("user", map[string]any{"username": username})
	}
	return user, nil
}

// List returns all accounts, keyed by username.
func (s *UserService) List() map[string]*domain.User {
	return s.store.ListUsers()
}
