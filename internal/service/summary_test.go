package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/vps-service/internal/domain"
)

func TestResourceSummaries(t *testing.T) {
	svc, fileStore, _ := newTestLifecycle(t)

	first := mustCreate(t, svc)
	second, err := svc.Create(context.Background(), adminActor, CreateInput{
		Owner: "alice",
		Spec:  domain.ResourceSpec{RAMGB: 8, CPU: 4, DiskGB: 100},
	})
	require.NoError(t, err)

	_, err = svc.Stop(context.Background(), adminActor, second.ContainerName)
	require.NoError(t, err)
	_, err = svc.Suspend(context.Background(), adminActor, first.ContainerName, "")
	require.NoError(t, err)

	require.NoError(t, fileStore.MutateUsers(func(users map[string]*domain.User) error {
		users["bob"] = &domain.User{Username: "bob", Role: domain.RoleUser}
		return nil
	}))
	_, err = svc.Create(context.Background(), adminActor, CreateInput{
		Owner: "bob",
		Spec:  domain.ResourceSpec{RAMGB: 16, CPU: 6, DiskGB: 200},
	})
	require.NoError(t, err)

	alice := svc.SummaryForOwner("alice")
	require.Equal(t, 2, alice.Instances)
	require.Equal(t, 0, alice.Active)
	require.Equal(t, 1, alice.Suspended)
	require.Equal(t, 12, alice.RAMGB)
	require.Equal(t, 6, alice.CPU)
	require.Equal(t, 150, alice.DiskGB)

	host := svc.HostSummary()
	require.Equal(t, 3, host.Instances)
	require.Equal(t, 1, host.Active)
	require.Equal(t, 28, host.RAMGB)
	require.Equal(t, 12, host.CPU)
	require.Equal(t, 350, host.DiskGB)
}

func TestSummarySkipsCorruptSpecs(t *testing.T) {
	svc, fileStore, _ := newTestLifecycle(t)
	require.NoError(t, fileStore.MutateVPS(func(vps map[string]*domain.VPS) error {
		vps["svm-bad-1"] = &domain.VPS{ContainerName: "svm-bad-1", Owner: "alice", RAM: "lots", Storage: "??", Status: domain.VPSStatusRunning}
		return nil
	}))

	summary := svc.SummaryForOwner("alice")
	require.Equal(t, 1, summary.Instances)
	require.Equal(t, 1, summary.Active)
	require.Zero(t, summary.RAMGB)
}
