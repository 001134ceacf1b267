package portal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covercell/portal"
)

func TestStoreStartsResolving(t *testing.T) {
	provider := newFakeIdentityService()
	store := portal.NewStore(provider, newFakeProfileStore())

	assert.True(t, store.Resolving())
	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, store.Current())
}

func TestStoreResolvesActiveSession(t *testing.T) {
	provider := newFakeIdentityService()
	profiles := newFakeProfileStore()
	profiles.Put(context.Background(), "user-1", &portal.Profile{
		Role:  portal.RoleCustomer,
		Name:  "Casey Customer",
		Email: "casey@example.com",
	})

	store := portal.NewStore(provider, profiles, portal.WithStoreLogger(testLogger{}))
	store.Start(context.Background())
	defer store.Close()

	provider.Emit(portal.SessionChange{Active: true, UserID: "user-1"})

	require.False(t, store.Resolving())
	require.True(t, store.IsAuthenticated())

	identity := store.Current()
	require.NotNil(t, identity)
	assert.Equal(t, "user-1", identity.ID)
	assert.Equal(t, portal.RoleCustomer, identity.Role)
	assert.NoError(t, store.Err())
}

func TestStoreInactiveSessionClears(t *testing.T) {
	provider := newFakeIdentityService()
	profiles := newFakeProfileStore()
	profiles.Put(context.Background(), "user-1", &portal.Profile{Role: portal.RoleCustomer})

	store := portal.NewStore(provider, profiles, portal.WithStoreLogger(testLogger{}))
	store.Start(context.Background())
	defer store.Close()

	provider.Emit(portal.SessionChange{Active: true, UserID: "user-1"})
	require.True(t, store.IsAuthenticated())

	provider.Emit(portal.SessionChange{Active: false})

	assert.False(t, store.Resolving())
	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, store.Current())
}

func TestStoreFailsClosedWithoutProfile(t *testing.T) {
	provider := newFakeIdentityService()
	profiles := newFakeProfileStore()
	notifier := &memNotifier{}

	store := portal.NewStore(provider, profiles,
		portal.WithStoreLogger(testLogger{}),
		portal.WithStoreNotifier(notifier),
	)
	store.Start(context.Background())
	defer store.Close()

	// Active provider session, but no profile record exists.
	provider.Emit(portal.SessionChange{Active: true, UserID: "ghost"})

	assert.False(t, store.Resolving())
	assert.False(t, store.IsAuthenticated())
	assert.True(t, portal.IsProfileMissing(store.Err()))

	require.Len(t, notifier.Failures(), 1)
	assert.Equal(t, portal.ErrProfileMissing.Message, notifier.Failures()[0])
}

func TestStoreStaleResolutionDiscarded(t *testing.T) {
	provider := newFakeIdentityService()
	profiles := newFakeProfileStore()

	entered := make(chan struct{})
	release := make(chan struct{})

	profiles.GetFunc = func(ctx context.Context, id string) (*portal.Profile, error) {
		if id == "slow-user" {
			close(entered)
			<-release
			return &portal.Profile{Role: portal.RoleCustomer, Name: "Slow"}, nil
		}
		return nil, portal.ErrProfileMissing
	}

	store := portal.NewStore(provider, profiles, portal.WithStoreLogger(testLogger{}))
	store.Start(context.Background())
	defer store.Close()

	// A login whose profile lookup hangs.
	go provider.Emit(portal.SessionChange{Active: true, UserID: "slow-user"})

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("profile lookup never started")
	}

	// The user signs out while the lookup is still in flight.
	provider.Emit(portal.SessionChange{Active: false})

	// The slow lookup completes last; its outcome must be discarded.
	close(release)

	assert.Eventually(t, func() bool {
		return !store.Resolving()
	}, 2*time.Second, 10*time.Millisecond)

	assert.Nil(t, store.Current(), "superseded login must not resurrect the session")
	assert.False(t, store.IsAuthenticated())
}

func TestStoreSubscribe(t *testing.T) {
	provider := newFakeIdentityService()
	profiles := newFakeProfileStore()
	profiles.Put(context.Background(), "user-1", &portal.Profile{Role: portal.RoleCustomer})

	store := portal.NewStore(provider, profiles, portal.WithStoreLogger(testLogger{}))
	store.Start(context.Background())
	defer store.Close()

	var snapshots []portal.Snapshot
	unsubscribe := store.Subscribe(func(snap portal.Snapshot) {
		snapshots = append(snapshots, snap)
	})

	provider.Emit(portal.SessionChange{Active: true, UserID: "user-1"})
	require.Len(t, snapshots, 1)
	assert.True(t, snapshots[0].IsAuthenticated())
	assert.False(t, snapshots[0].Resolving)

	provider.Emit(portal.SessionChange{Active: false})
	require.Len(t, snapshots, 2)
	assert.False(t, snapshots[1].IsAuthenticated())

	unsubscribe()
	provider.Emit(portal.SessionChange{Active: true, UserID: "user-1"})
	assert.Len(t, snapshots, 2, "unsubscribed callbacks must not fire")
}

func TestStoreCloseStopsNotifications(t *testing.T) {
	provider := newFakeIdentityService()
	profiles := newFakeProfileStore()
	profiles.Put(context.Background(), "user-1", &portal.Profile{Role: portal.RoleCustomer})

	store := portal.NewStore(provider, profiles, portal.WithStoreLogger(testLogger{}))
	store.Start(context.Background())

	calls := 0
	store.Subscribe(func(portal.Snapshot) { calls++ })

	store.Close()

	provider.Emit(portal.SessionChange{Active: true, UserID: "user-1"})
	assert.Zero(t, calls)
	assert.False(t, store.IsAuthenticated())
}

func TestStoreStartIsIdempotent(t *testing.T) {
	provider := newFakeIdentityService()
	profiles := newFakeProfileStore()
	profiles.Put(context.Background(), "user-1", &portal.Profile{Role: portal.RoleCustomer})

	store := portal.NewStore(provider, profiles, portal.WithStoreLogger(testLogger{}))
	store.Start(context.Background())
	store.Start(context.Background())
	defer store.Close()

	calls := 0
	store.Subscribe(func(portal.Snapshot) { calls++ })

	provider.Emit(portal.SessionChange{Active: true, UserID: "user-1"})
	assert.Equal(t, 1, calls, "a double Start must not double the session feed")
}
