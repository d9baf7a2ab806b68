package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drake/ferry/remote"
)

var testCreds = remote.Credentials{Host: "ftp.example.com", User: "u", Secret: "p"}

func TestConnectSuccess(t *testing.T) {
	client := remote.NewMockClient()
	dialer := remote.NewMockDialer(client)
	m := NewManager(dialer)

	require.NoError(t, m.Connect(context.Background(), testCreds))
	assert.True(t, m.IsConnected())
	assert.Equal(t, Connected, m.Status())
	assert.Equal(t, "ftp.example.com", m.Host())
	assert.Equal(t, []remote.Credentials{testCreds}, dialer.Dials)
}

func TestConnectFailureLeavesDisconnected(t *testing.T) {
	dialer := remote.NewMockDialer(nil)
	dialer.SetErr(errors.New("530 login incorrect"))
	m := NewManager(dialer)

	err := m.Connect(context.Background(), testCreds)

	var cerr *ConnectError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "ftp.example.com", cerr.Host)
	assert.EqualError(t, cerr.Err, "530 login incorrect")
	assert.False(t, m.IsConnected())
	assert.Equal(t, Disconnected, m.Status())
	assert.Empty(t, m.Host())
}

func TestConnectWhileConnectedIsRejected(t *testing.T) {
	first := remote.NewMockClient()
	m := NewManager(remote.NewMockDialer(first))
	ctx := context.Background()

	require.NoError(t, m.Connect(ctx, testCreds))
	err := m.Connect(ctx, remote.Credentials{Host: "other"})

	assert.ErrorIs(t, err, ErrAlreadyConnected)
	assert.False(t, first.IsClosed())
	assert.Equal(t, "ftp.example.com", m.Host())
}

func TestConnectWithReplaceClosesPrior(t *testing.T) {
	dialer := remote.NewMockDialer(nil)
	m := NewManager(dialer, WithReplace())
	ctx := context.Background()

	require.NoError(t, m.Connect(ctx, testCreds))
	require.NoError(t, m.Connect(ctx, remote.Credentials{Host: "other"}))

	require.Len(t, dialer.Issued, 2)
	assert.True(t, dialer.Issued[0].IsClosed(), "prior connection leaked")
	assert.False(t, dialer.Issued[1].IsClosed())
	assert.Equal(t, "other", m.Host())
}

func TestDisconnect(t *testing.T) {
	client := remote.NewMockClient()
	m := NewManager(remote.NewMockDialer(client))
	ctx := context.Background()

	assert.ErrorIs(t, m.Disconnect(ctx), ErrNotConnected)

	require.NoError(t, m.Connect(ctx, testCreds))
	require.NoError(t, m.Disconnect(ctx))
	assert.True(t, client.IsClosed())
	assert.False(t, m.IsConnected())

	assert.ErrorIs(t, m.Disconnect(ctx), ErrNotConnected)
}

func TestDisconnectClearsEvenWhenCloseFails(t *testing.T) {
	client := remote.NewMockClient()
	client.CloseErr = errors.New("broken pipe")
	m := NewManager(remote.NewMockDialer(client))
	ctx := context.Background()

	require.NoError(t, m.Connect(ctx, testCreds))
	require.NoError(t, m.Disconnect(ctx))
	assert.False(t, m.IsConnected())
}

func TestIsConnectedDoesNotWaitForSlot(t *testing.T) {
	client := remote.NewMockClient()
	m := NewManager(remote.NewMockDialer(client))
	require.NoError(t, m.Connect(context.Background(), testCreds))

	release, err := m.acquire(context.Background())
	require.NoError(t, err)
	defer release()

	done := make(chan bool, 1)
	go func() { done <- m.IsConnected() }()

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("IsConnected blocked on the request slot")
	}
}

func TestAcquireHonoursContext(t *testing.T) {
	m := NewManager(remote.NewMockDialer(nil))
	release, err := m.acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Connect(ctx, testCreds), context.DeadlineExceeded)
}
