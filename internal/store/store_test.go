package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/vps-service/internal/domain"
	"github.com/spec-kit/vps-service/pkg/util"
)

func openTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	return s, dir
}

func TestOpenEmptyDir(t *testing.T) {
	s, _ := openTestStore(t)
	require.Empty(t, s.ListUsers())
	require.Empty(t, s.ListVPS())
	require.Empty(t, s.ListOrders())
	require.Equal(t, "SVM Panel", s.Settings().PanelName)
}

func TestRoundTrip(t *testing.T) {
	s, dir := openTestStore(t)

	err := s.MutateUsers(func(users map[string]*domain.User) error {
		users["alice"] = &domain.User{
			Username:  "alice",
			Email:     "alice@example.com",
			Role:      domain.RoleUser,
			CreatedAt: time.Now(),
			Balance:   decimal.NewFromInt(50),
		}
		return nil
	})
	require.NoError(t, err)

	err = s.MutateVPS(func(vps map[string]*domain.VPS) error {
		vps["svm-web-1"] = &domain.VPS{
			ContainerName: "svm-web-1",
			Owner:         "alice",
			RAM:           "4GB",
			CPU:           2,
			Storage:       "50GB",
			Status:        domain.VPSStatusRunning,
		}
		return nil
	})
	require.NoError(t, err)

	// A fresh store over the same directory sees everything.
	reopened, err := Open(dir)
	require.NoError(t, err)

	user, ok := reopened.GetUser("alice")
	require.True(t, ok)
	require.Equal(t, "alice@example.com", user.Email)
	require.True(t, user.Balance.Equal(decimal.NewFromInt(50)))

	record, ok := reopened.GetVPS("svm-web-1")
	require.True(t, ok)
	require.Equal(t, domain.VPSStatusRunning, record.Status)
	require.Equal(t, "4GB", record.RAM)
}

func TestMutateErrorLeavesStateUntouched(t *testing.T) {
	s, _ := openTestStore(t)

	err := s.MutateUsers(func(users map[string]*domain.User) error {
		users["alice"] = &domain.User{Username: "alice"}
		return nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.MutateUsers(func(users map[string]*domain.User) error {
		delete(users, "alice")
		users["mallory"] = &domain.User{Username: "mallory"}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, ok := s.GetUser("alice")
	require.True(t, ok)
	_, ok = s.GetUser("mallory")
	require.False(t, ok)
}

func TestMutateVPSRecordMissing(t *testing.T) {
	s, _ := openTestStore(t)
	err := s.MutateVPSRecord("absent", func(v *domain.VPS) error { return nil })
	require.True(t, util.IsCode(err, "NOT_FOUND"))
}

func TestCopiesAreIsolated(t *testing.T) {
	s, _ := openTestStore(t)
	require.NoError(t, s.MutateVPS(func(vps map[string]*domain.VPS) error {
		vps["svm-web-1"] = &domain.VPS{ContainerName: "svm-web-1", Status: domain.VPSStatusStopped}
		return nil
	}))

	record, ok := s.GetVPS("svm-web-1")
	require.True(t, ok)
	record.Status = domain.VPSStatusRunning

	again, _ := s.GetVPS("svm-web-1")
	require.Equal(t, domain.VPSStatusStopped, again.Status)
}

func TestMissingBalanceLoadsAsZero(t *testing.T) {
	dir := t.TempDir()
	raw := `{"legacy": {"username": "legacy", "email": "l@example.com", "password": "x", "role": "user"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), []byte(raw), 0o644))

	s, err := Open(dir)
	require.NoError(t, err)

	user, ok := s.GetUser("legacy")
	require.True(t, ok)
	require.True(t, user.Balance.IsZero())
}

func TestWriteGoesThroughTempFile(t *testing.T) {
	s, dir := openTestStore(t)
	require.NoError(t, s.MutateOrders(func(orders map[string]*domain.Order) error {
		orders["ORD-1"] = &domain.Order{ID: "ORD-1", Buyer: "alice", PlanKey: "starter", Status: domain.OrderStatusPending}
		return nil
	}))

	// No leftover temp file after a committed write.
	_, err := os.Stat(filepath.Join(dir, "pending_payments.json.tmp"))
	require.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(dir, "pending_payments.json"))
	require.NoError(t, err)
}
