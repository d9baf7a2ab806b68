package transfer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drake/ferry/event"
	"github.com/drake/ferry/remote"
)

type fixture struct {
	client   *remote.MockClient
	dialer   *remote.MockDialer
	manager  *Manager
	executor *Executor
	hub      *event.Hub

	mu     sync.Mutex
	posted []event.Resumption
}

func newFixture(t *testing.T, opts ...ExecutorOption) *fixture {
	t.Helper()
	f := &fixture{client: remote.NewMockClient()}
	f.dialer = remote.NewMockDialer(f.client)
	f.manager = NewManager(f.dialer)
	f.hub = event.NewHub(event.BridgeFunc(func(r event.Resumption) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.posted = append(f.posted, r)
	}))
	f.executor = NewExecutor(f.manager, f.hub, opts...)
	return f
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, f.manager.Connect(context.Background(), testCreds))
}

func (f *fixture) resumptions() []event.Resumption {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]event.Resumption, len(f.posted))
	copy(out, f.posted)
	return out
}

func TestOperationsWhileDisconnectedFail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hub.Register(event.Uploaded, "l")

	_, listErr := f.executor.List(ctx, "/")
	errs := []error{
		f.executor.Upload(ctx, "a.txt", "/x"),
		f.executor.Download(ctx, "a.txt", "/x"),
		listErr,
		f.executor.Delete(ctx, "a.txt", "/x"),
		f.executor.Rename(ctx, "a.txt", "b.txt", "/x"),
	}
	for i, err := range errs {
		assert.ErrorIs(t, err, ErrNotConnected, "op %d", i)
	}
	assert.Empty(t, f.client.CallsSnapshot(), "no remote call may be made")
	assert.Zero(t, f.dialer.DialCount())
	assert.Empty(t, f.resumptions())
}

func TestUploadPublishesUploaded(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	upID := f.hub.Register(event.Uploaded, "on-upload")
	f.hub.Register(event.Downloaded, "on-download")

	require.NoError(t, f.executor.Upload(context.Background(), "a.txt", "/x"))

	got := f.resumptions()
	require.Len(t, got, 1, "exactly one listener resumed")
	assert.Equal(t, upID, got[0].ID)
	assert.Equal(t, event.Payload{Kind: event.Uploaded, File: "a.txt", Path: "/x"}, got[0].Payload)
	assert.Equal(t, []remote.Call{{Op: "upload", Args: []string{"a.txt", "/x"}}}, f.client.CallsSnapshot())
}

func TestDownloadPublishesDownloaded(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.hub.Register(event.Uploaded, "on-upload")
	f.hub.Register(event.Downloaded, "on-download")

	require.NoError(t, f.executor.Download(context.Background(), "b.txt", "/y"))

	got := f.resumptions()
	require.Len(t, got, 1)
	assert.Equal(t, event.Handle("on-download"), got[0].Handle)
	assert.Equal(t, event.Payload{Kind: event.Downloaded, File: "b.txt", Path: "/y"}, got[0].Payload)
}

func TestFailedUploadReportsTransferErrorAndKeepsConnection(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.hub.Register(event.Uploaded, "l")
	cause := errors.New("553 could not create file")
	f.client.SetError("upload", cause)

	err := f.executor.Upload(context.Background(), "a.txt", "/x")

	var terr *TransferError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, OpUpload, terr.Op)
	assert.ErrorIs(t, err, cause)
	assert.False(t, terr.Disconnected)
	assert.True(t, f.manager.IsConnected())
	assert.Empty(t, f.resumptions(), "failures do not fire events")
	assert.Len(t, f.client.CallsSnapshot(), 1, "no retry")
}

func TestRefusedDataConnectionKeepsConnection(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.client.SetError("upload", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED})

	err := f.executor.Upload(context.Background(), "a.txt", "/x")

	var terr *TransferError
	require.ErrorAs(t, err, &terr)
	assert.False(t, terr.Disconnected)
	assert.True(t, f.manager.IsConnected())
	assert.False(t, f.client.IsClosed())

	f.client.SetError("upload", nil)
	assert.NoError(t, f.executor.Upload(context.Background(), "a.txt", "/x"))
}

func TestConnectionLossDisconnects(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.client.SetError("download", fmt.Errorf("%w: read: EOF", remote.ErrConnLost))

	err := f.executor.Download(context.Background(), "a.txt", "/x")

	var terr *TransferError
	require.ErrorAs(t, err, &terr)
	assert.True(t, terr.Disconnected)
	assert.False(t, f.manager.IsConnected())
	assert.True(t, f.client.IsClosed())
	assert.ErrorIs(t, f.executor.Upload(context.Background(), "a.txt", "/x"), ErrNotConnected)
}

func TestListPreservesServerOrder(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.client.SetListing("/", "zeta", "alpha", "mid")

	names, err := f.executor.List(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestListEmptyDirectory(t *testing.T) {
	f := newFixture(t)
	f.connect(t)

	names, err := f.executor.List(context.Background(), "/empty")
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestListFailure(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.client.SetError("list", errors.New("550 no such directory"))

	names, err := f.executor.List(context.Background(), "/missing")
	assert.Nil(t, names)
	var terr *TransferError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, OpList, terr.Op)
}

func TestDeleteAndRenameFireNoEvents(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.hub.Register(event.Uploaded, "u")
	f.hub.Register(event.Downloaded, "d")
	ctx := context.Background()

	require.NoError(t, f.executor.Delete(ctx, "a.txt", "/x"))
	require.NoError(t, f.executor.Rename(ctx, "old.txt", "new.txt", "/x"))

	assert.Empty(t, f.resumptions())
	assert.Equal(t, []remote.Call{
		{Op: "delete", Args: []string{"a.txt", "/x"}},
		{Op: "rename", Args: []string{"old.txt", "new.txt", "/x"}},
	}, f.client.CallsSnapshot())
}

func TestCachedListEvictedByMutation(t *testing.T) {
	f := newFixture(t, WithListingCache(8))
	f.connect(t)
	f.client.SetListing("/x", "a.txt")
	ctx := context.Background()

	_, ok := f.executor.CachedList("/x")
	assert.False(t, ok)

	_, err := f.executor.List(ctx, "/x")
	require.NoError(t, err)
	names, ok := f.executor.CachedList("/x/")
	require.True(t, ok)
	assert.Equal(t, []string{"a.txt"}, names)
	assert.Equal(t, 1, f.executor.CachedListings())

	require.NoError(t, f.executor.Upload(ctx, "b.txt", "/x"))
	_, ok = f.executor.CachedList("/x")
	assert.False(t, ok, "upload must evict the listing")
}

func TestCacheDisabled(t *testing.T) {
	f := newFixture(t, WithListingCache(0))
	f.connect(t)

	_, err := f.executor.List(context.Background(), "/")
	require.NoError(t, err)
	_, ok := f.executor.CachedList("/")
	assert.False(t, ok)
	assert.Zero(t, f.executor.CachedListings())
}

func TestConcurrentCallersAreSerialized(t *testing.T) {
	f := newFixture(t)
	f.connect(t)
	f.client.Hold = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, f.executor.Delete(context.Background(), fmt.Sprintf("f%d", i), "/"))
		}(i)
	}

	// Release one request at a time; only the slot holder may be inside the client
	for i := 0; i < 3; i++ {
		select {
		case f.client.Hold <- struct{}{}:
		case <-time.After(2 * time.Second):
			t.Fatal("request never reached the client")
		}
		n := i + 1
		assert.Eventually(t, func() bool { return len(f.client.CallsSnapshot()) == n },
			time.Second, time.Millisecond)
	}
	wg.Wait()
	assert.Equal(t, 1, f.client.MaxInFlight())
}

// Scenario: connect, upload, event fires, disconnect.
func TestSessionScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hub.Register(event.Uploaded, "when-uploaded")

	require.NoError(t, f.manager.Connect(ctx, testCreds))
	assert.True(t, f.manager.IsConnected())

	require.NoError(t, f.executor.Upload(ctx, "file.txt", "/path/to/upload"))
	got := f.resumptions()
	require.Len(t, got, 1)
	assert.Equal(t, event.Payload{Kind: event.Uploaded, File: "file.txt", Path: "/path/to/upload"}, got[0].Payload)

	require.NoError(t, f.manager.Disconnect(ctx))
	assert.False(t, f.manager.IsConnected())
}
