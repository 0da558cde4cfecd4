package client_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/field-portal/client"
	"github.com/stretchr/testify/require"
)

func newState(t *testing.T, storage client.Storage) *client.SessionState {
	t.Helper()
	state, err := client.NewSessionState(storage)
	require.NoError(t, err)
	return state
}

func TestSessionState_Lifecycle(t *testing.T) {
	state := newState(t, client.NewMemoryStorage())
	require.Equal(t, client.StateLoggedOut, state.State())
	require.False(t, state.IsAuthenticated())
	require.Equal(t, client.RoleTechnician, state.Role())

	require.NoError(t, state.SetSession(client.SessionData{AccessToken: "tok", VendorID: "ACME", PlantID: "Plant1"}))
	require.Equal(t, client.StateAuthenticated, state.State())
	require.True(t, state.IsAuthenticated())
	require.False(t, state.IsInvalidated())
	require.True(t, state.CanViewProtected())
	require.Equal(t, client.RoleTechnician, state.Role())

	require.NoError(t, state.SetInvalidated(true))
	require.False(t, state.CanViewProtected())
	require.NoError(t, state.ClearSession())
	require.Equal(t, client.StateInvalidated, state.State())
	require.True(t, state.IsInvalidated(), "clearing keeps the latch")
	require.False(t, state.IsAuthenticated())
	require.Empty(t, state.AccessToken())

	require.NoError(t, state.SetSession(client.SessionData{AccessToken: "tok2", VendorID: "ACME", PlantID: "Plant1", UserRole: client.RoleAdmin}))
	require.Equal(t, client.StateAuthenticated, state.State())
	require.False(t, state.IsInvalidated())
	require.Equal(t, client.RoleAdmin, state.Role())

	require.NoError(t, state.ClearSession())
	require.Equal(t, client.StateLoggedOut, state.State())
}

func TestSessionState_TestMode(t *testing.T) {
	state := newState(t, client.NewMemoryStorage())

	require.NoError(t, state.SetTestMode(true, ""))
	snap := state.Snapshot()
	require.True(t, snap.IsAuthenticated)
	require.True(t, snap.IsTestMode)
	require.Equal(t, client.DemoVendorID, snap.VendorID)
	require.Equal(t, client.DemoPlantID, snap.PlantID)
	require.Empty(t, snap.AccessToken)

	require.NoError(t, state.SetUserRole(client.RoleAdmin))
	require.Equal(t, client.RoleAdmin, state.Role())

	require.NoError(t, state.SetTestMode(false, client.RoleTechnician))
	snap = state.Snapshot()
	require.False(t, snap.IsAuthenticated)
	require.Empty(t, snap.VendorID)
}

func TestSessionState_PersistsAcrossRestarts(t *testing.T) {
	storage := client.NewMemoryStorage()
	state := newState(t, storage)
	require.NoError(t, state.SetSession(client.SessionData{AccessToken: "tok", VendorID: "ACME", PlantID: "Plant1"}))

	data, err := storage.Load(client.StorageKey)
	require.NoError(t, err)
	var stored map[string]any
	require.NoError(t, json.Unmarshal(data, &stored))
	require.Equal(t, "tok", stored["accessToken"])
	require.Equal(t, "technician", stored["userRole"])
	require.Equal(t, true, stored["isAuthenticated"])

	restored := newState(t, storage)
	require.Equal(t, state.Snapshot(), restored.Snapshot())

	require.NoError(t, restored.ClearSession())
	_, err = storage.Load(client.StorageKey)
	require.ErrorIs(t, err, client.ErrNotStored)
}

func TestSessionState_IgnoresCorruptStorage(t *testing.T) {
	storage := client.NewMemoryStorage()
	require.NoError(t, storage.Save(client.StorageKey, []byte("{not json")))

	state := newState(t, storage)
	require.Equal(t, client.StateLoggedOut, state.State())
}

func TestSessionState_Subscribe(t *testing.T) {
	state := newState(t, client.NewMemoryStorage())

	var (
		mu       sync.Mutex
		firstGot []client.State
		otherGot int
	)
	unsubscribe := state.Subscribe(func(s client.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		firstGot = append(firstGot, s.State())
	})
	unsubscribeOther := state.Subscribe(func(client.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		otherGot++
	})
	defer unsubscribeOther()

	require.NoError(t, state.SetSession(client.SessionData{AccessToken: "tok"}))
	require.NoError(t, state.SetInvalidated(true))
	unsubscribe()
	unsubscribe()
	require.NoError(t, state.ClearSession())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []client.State{client.StateAuthenticated, client.StateInvalidated}, firstGot)
	require.Equal(t, 3, otherGot)
}

func TestSessionState_SubscriptionsAreReleased(t *testing.T) {
	state := newState(t, client.NewMemoryStorage())

	counts := make([]atomic.Int32, 3)
	unsubscribes := make([]func(), len(counts))
	for i := range counts {
		unsubscribes[i] = state.Subscribe(func(client.Snapshot) { counts[i].Add(1) })
	}
	require.Equal(t, 3, state.SubscriberCount())

	unsubscribes[1]()
	require.NoError(t, state.SetSession(client.SessionData{AccessToken: "tok"}))
	require.Equal(t, int32(1), counts[0].Load())
	require.Zero(t, counts[1].Load())
	require.Equal(t, int32(1), counts[2].Load())

	unsubscribes[0]()
	unsubscribes[2]()
	require.Zero(t, state.SubscriberCount())

	v := &fakeValidator{fn: func(context.Context, int) error { return nil }}
	p := client.NewPoller(v, state, client.WithInterval(time.Hour))
	for range 20 {
		require.True(t, p.Start(context.Background()))
		p.Stop()
	}
	require.Zero(t, state.SubscriberCount())
}
