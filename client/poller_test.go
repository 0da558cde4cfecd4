package client_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/field-portal/client"
	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	calls atomic.Int32
	fn    func(ctx context.Context, call int) error
}

func (v *fakeValidator) ValidateSession(ctx context.Context) (*client.SessionInfo, error) {
	call := int(v.calls.Add(1))
	if err := v.fn(ctx, call); err != nil {
		return nil, err
	}
	return &client.SessionInfo{Valid: true}, nil
}

var errInvalidated = &client.APIError{Status: 401, Code: client.CodeSessionInvalidated, Message: "Session invalidated"}

func authenticatedState(t *testing.T) *client.SessionState {
	t.Helper()
	state := newState(t, client.NewMemoryStorage())
	require.NoError(t, state.SetSession(client.SessionData{AccessToken: "tok", VendorID: "ACME", PlantID: "Plant1"}))
	return state
}

func TestPoller_DoesNotStartWithoutSession(t *testing.T) {
	v := &fakeValidator{fn: func(context.Context, int) error { return nil }}

	loggedOut := newState(t, client.NewMemoryStorage())
	require.False(t, client.NewPoller(v, loggedOut).Start(context.Background()))

	testMode := newState(t, client.NewMemoryStorage())
	require.NoError(t, testMode.SetTestMode(true, client.RoleTechnician))
	require.False(t, client.NewPoller(v, testMode).Start(context.Background()))

	admin := newState(t, client.NewMemoryStorage())
	require.NoError(t, admin.SetSession(client.SessionData{AccessToken: "admin-token", UserRole: client.RoleAdmin}))
	require.False(t, client.NewPoller(v, admin).Start(context.Background()))

	require.Zero(t, v.calls.Load())
}

func TestPoller_StopsWhenRoleBecomesAdmin(t *testing.T) {
	v := &fakeValidator{fn: func(context.Context, int) error { return nil }}
	state := authenticatedState(t)

	p := client.NewPoller(v, state, client.WithInterval(10*time.Millisecond))
	require.True(t, p.Start(context.Background()))
	defer p.Stop()

	require.NoError(t, state.SetUserRole(client.RoleAdmin))
	require.Eventually(t, func() bool { return !p.Running() }, time.Second, 5*time.Millisecond)
}

func TestPoller_ChecksImmediatelyAndOnInterval(t *testing.T) {
	v := &fakeValidator{fn: func(context.Context, int) error { return nil }}
	state := authenticatedState(t)

	p := client.NewPoller(v, state, client.WithInterval(10*time.Millisecond))
	require.True(t, p.Start(context.Background()))
	require.False(t, p.Start(context.Background()), "already running")
	defer p.Stop()

	require.Eventually(t, func() bool { return v.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.True(t, p.Running())
	require.True(t, state.CanViewProtected())
}

func TestPoller_InvalidationLatches(t *testing.T) {
	v := &fakeValidator{fn: func(_ context.Context, call int) error {
		if call == 2 {
			return errInvalidated
		}
		return nil
	}}
	state := authenticatedState(t)

	p := client.NewPoller(v, state, client.WithInterval(10*time.Millisecond))
	require.True(t, p.Start(context.Background()))

	require.Eventually(t, func() bool { return !p.Running() }, time.Second, 5*time.Millisecond)
	snap := state.Snapshot()
	require.True(t, snap.IsInvalidated)
	require.False(t, snap.IsAuthenticated)
	require.Empty(t, snap.AccessToken)
	require.Equal(t, client.StateInvalidated, snap.State())
	require.EqualValues(t, 2, v.calls.Load())
}

func TestPoller_OtherErrorsAreSwallowed(t *testing.T) {
	v := &fakeValidator{fn: func(context.Context, int) error {
		return errors.New("network down")
	}}
	state := authenticatedState(t)

	p := client.NewPoller(v, state, client.WithInterval(10*time.Millisecond))
	require.True(t, p.Start(context.Background()))
	defer p.Stop()

	require.Eventually(t, func() bool { return v.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.Equal(t, client.StateAuthenticated, state.State())

	unauthorized := &fakeValidator{fn: func(context.Context, int) error {
		return &client.APIError{Status: 401, Code: client.CodeUnauthorized}
	}}
	other := authenticatedState(t)
	p2 := client.NewPoller(unauthorized, other, client.WithInterval(10*time.Millisecond))
	require.True(t, p2.Start(context.Background()))
	defer p2.Stop()
	require.Eventually(t, func() bool { return unauthorized.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.False(t, other.IsInvalidated())
}

func TestPoller_StopsWhenSessionCleared(t *testing.T) {
	v := &fakeValidator{fn: func(context.Context, int) error { return nil }}
	state := authenticatedState(t)

	p := client.NewPoller(v, state, client.WithInterval(time.Hour))
	require.True(t, p.Start(context.Background()))
	require.Eventually(t, func() bool { return v.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, state.ClearSession())
	require.Eventually(t, func() bool { return !p.Running() }, time.Second, 5*time.Millisecond)
	p.Stop()
}

func TestPoller_NoResultAppliedAfterStop(t *testing.T) {
	inFlight := make(chan struct{})
	v := &fakeValidator{fn: func(ctx context.Context, _ int) error {
		close(inFlight)
		<-ctx.Done()
		return errInvalidated
	}}
	state := authenticatedState(t)

	p := client.NewPoller(v, state, client.WithInterval(time.Hour))
	require.True(t, p.Start(context.Background()))
	<-inFlight

	p.Stop()
	require.False(t, p.Running())
	require.Equal(t, client.StateAuthenticated, state.State())
	require.False(t, state.IsInvalidated())
}

func TestPoller_ContextCancellation(t *testing.T) {
	v := &fakeValidator{fn: func(context.Context, int) error { return nil }}
	state := authenticatedState(t)

	ctx, cancel := context.WithCancel(context.Background())
	p := client.NewPoller(v, state, client.WithInterval(10*time.Millisecond))
	require.True(t, p.Start(ctx))
	cancel()

	require.Eventually(t, func() bool { return !p.Running() }, time.Second, 5*time.Millisecond)
	calls := v.calls.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, calls, v.calls.Load())
}
