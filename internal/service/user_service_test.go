package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/vps-service/internal/auth"
	"github.com/spec-kit/vps-service/internal/config"
	"github.com/spec-kit/vps-service/internal/domain"
	"github.com/spec-kit/vps-service/internal/store"
	"github.com/spec-kit/vps-service/pkg/util"
)

func newTestUsers(t *testing.T) (*UserService, *store.FileStore, *fakeAdapter) {
	t.Helper()
	fileStore, err := store.Open(t.TempDir())
	require.NoError(t, err)

	adapter := newFakeAdapter()
	lifecycle := NewLifecycleService(LifecycleDependencies{
		Store:   fileStore,
		Runtime: adapter,
		Audit:   noAudit(),
		Logger:  zap.NewNop(),
	})
	authCfg := config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4}
	svc := NewUserService(UserDependencies{
		Store:     fileStore,
		Lifecycle: lifecycle,
		Tokens:    auth.NewTokenManager(authCfg.JWTSecret, authCfg.AccessTokenTTLMinutes),
		Auth:      authCfg,
		Logger:    zap.NewNop(),
	})
	return svc, fileStore, adapter
}

func TestEnsureAdminSeedsOnce(t *testing.T) {
	svc, fileStore, _ := newTestUsers(t)

	require.NoError(t, svc.EnsureAdmin(context.Background()))
	admin, ok := fileStore.GetUser("admin")
	require.True(t, ok)
	require.Equal(t, domain.RoleAdmin, admin.Role)

	// Never reseeds once accounts exist.
	require.NoError(t, svc.EnsureAdmin(context.Background()))
	require.Len(t, fileStore.ListUsers(), 1)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _, _ := newTestUsers(t)

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "secret")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice", "other@example.com", "secret")
	require.True(t, util.IsCode(err, "CONFLICT"))

	_, err = svc.Register(context.Background(), "alice2", "alice@example.com", "secret")
	require.True(t, util.IsCode(err, "CONFLICT"))
}

func TestLoginChecksCredentialsAndFlags(t *testing.T) {
	svc, fileStore, _ := newTestUsers(t)
	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "secret")
	require.NoError(t, err)

	_, token, _, err := svc.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, _, _, err = svc.Login(context.Background(), "alice", "wrong")
	require.True(t, util.IsCode(err, "UNAUTHORIZED"))

	_, _, _, err = svc.Login(context.Background(), "ghost", "secret")
	require.True(t, util.IsCode(err, "UNAUTHORIZED"))

	require.NoError(t, fileStore.MutateUsers(func(users map[string]*domain.User) error {
		users["alice"].Banned = true
		return nil
	}))
	_, _, _, err = svc.Login(context.Background(), "alice", "secret")
	require.True(t, util.IsCode(err, "FORBIDDEN"))
}

func TestAdminCannotDemoteSelf(t *testing.T) {
	svc, _, _ := newTestUsers(t)
	require.NoError(t, svc.EnsureAdmin(context.Background()))

	role := domain.RoleUser
	_, err := svc.AdminUpdate(context.Background(), adminActor, "admin", UserUpdateInput{Role: &role})
	require.True(t, util.IsCode(err, "CONFLICT"))
}

func TestAddBalance(t *testing.T) {
	svc, _, _ := newTestUsers(t)
	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "secret")
	require.NoError(t, err)

	_, err = svc.AddBalance(context.Background(), adminActor, "alice", decimal.NewFromInt(-5))
	require.True(t, util.IsCode(err, "VALIDATION_FAILED"))

	user, err := svc.AddBalance(context.Background(), adminActor, "alice", decimal.RequireFromString("49.50"))
	require.NoError(t, err)
	require.True(t, user.Balance.Equal(decimal.RequireFromString("49.50")))

	user, err = svc.AddBalance(context.Background(), adminActor, "alice", decimal.RequireFromString("0.50"))
	require.NoError(t, err)
	require.True(t, user.Balance.Equal(decimal.NewFromInt(50)))
}

func TestDeleteUserTearsDownInstances(t *testing.T) {
	svc, fileStore, adapter := newTestUsers(t)
	require.NoError(t, svc.EnsureAdmin(context.Background()))
	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "secret")
	require.NoError(t, err)

	lifecycle := NewLifecycleService(LifecycleDependencies{
		Store:   fileStore,
		Runtime: adapter,
		Audit:   noAudit(),
		Logger:  zap.NewNop(),
	})
	_, err = lifecycle.Create(context.Background(), adminActor, CreateInput{
		Owner: "alice",
		Spec:  domain.ResourceSpec{RAMGB: 4, CPU: 2, DiskGB: 50},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), adminActor, "alice"))
	_, ok := fileStore.GetUser("alice")
	require.False(t, ok)
	require.Empty(t, fileStore.ListVPS())

	err = svc.Delete(context.Background(), adminActor, "admin")
	require.True(t, util.IsCode(err, "CONFLICT"))
}
