package remote

import (
	"context"
	"sync"
)

// Call records one request made against a MockClient.
type Call struct {
	Op   string
	Args []string
}

// MockClient implements Client in memory for tests.
type MockClient struct {
	mu sync.Mutex

	Calls    []Call
	Closed   bool
	CloseErr error

	// Listings maps a directory to the names List returns for it.
	Listings map[string][]string
	// Errors maps an op name ("upload", "list", ...) to the error it returns.
	Errors map[string]error
	// Hold, when set, blocks every request until a value is received on it.
	Hold chan struct{}

	inFlight    int
	maxInFlight int
}

// NewMockClient returns an empty MockClient.
func NewMockClient() *MockClient {
	return &MockClient{
		Listings: make(map[string][]string),
		Errors:   make(map[string]error),
	}
}

func (m *MockClient) record(op string, args ...string) error {
	m.mu.Lock()
	m.inFlight++
	m.maxInFlight = max(m.maxInFlight, m.inFlight)
	hold := m.Hold
	m.mu.Unlock()

	if hold != nil {
		<-hold
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--
	m.Calls = append(m.Calls, Call{Op: op, Args: args})
	return m.Errors[op]
}

// MaxInFlight returns the highest number of requests seen running at once.
func (m *MockClient) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// SetError makes op fail with err. A nil err clears it.
func (m *MockClient) SetError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.Errors, op)
		return
	}
	m.Errors[op] = err
}

// SetListing sets the names returned for dir.
func (m *MockClient) SetListing(dir string, names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Listings[dir] = names
}

// CallsSnapshot returns a copy of the recorded calls.
func (m *MockClient) CallsSnapshot() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.Calls))
	copy(out, m.Calls)
	return out
}

// IsClosed reports whether Close was called.
func (m *MockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Closed
}

func (m *MockClient) Upload(_ context.Context, file, dir string) error {
	return m.record("upload", file, dir)
}

func (m *MockClient) Download(_ context.Context, file, dir string) error {
	return m.record("download", file, dir)
}

func (m *MockClient) List(_ context.Context, dir string) ([]string, error) {
	if err := m.record("list", dir); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	names := m.Listings[dir]
	out := make([]string, len(names))
	copy(out, names)
	return out, nil
}

func (m *MockClient) Delete(_ context.Context, file, dir string) error {
	return m.record("delete", file, dir)
}

func (m *MockClient) Rename(_ context.Context, oldName, newName, dir string) error {
	return m.record("rename", oldName, newName, dir)
}

func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return m.CloseErr
}

// MockDialer implements Dialer. Each successful Dial hands out Client, or a
// fresh MockClient when Client is nil.
type MockDialer struct {
	mu sync.Mutex

	Client *MockClient
	Err    error
	Dials  []Credentials
	// Issued holds every client handed out, oldest first.
	Issued []*MockClient
}

// NewMockDialer returns a dialer that always hands out client.
func NewMockDialer(client *MockClient) *MockDialer {
	return &MockDialer{Client: client}
}

// Dial records creds and returns the configured client or error.
func (d *MockDialer) Dial(_ context.Context, creds Credentials) (Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Dials = append(d.Dials, creds)
	if d.Err != nil {
		return nil, d.Err
	}
	c := d.Client
	if c == nil {
		c = NewMockClient()
	}
	d.Issued = append(d.Issued, c)
	return c, nil
}

// SetErr makes subsequent dials fail with err.
func (d *MockDialer) SetErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Err = err
}

// DialCount returns how many times Dial was called.
func (d *MockDialer) DialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Dials)
}
