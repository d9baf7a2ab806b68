// Package remote defines the wire-level transfer client used by a session
// and provides FTP and SFTP implementations of it.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrConnLost marks errors where the transport itself went away mid-operation.
// Callers treat it as connection-fatal; every other error leaves the
// connection usable.
var ErrConnLost = errors.New("remote: connection lost")

// Credentials identify the server and the account to log in with.
type Credentials struct {
	Host   string
	User   string
	Secret string
}

// Client performs one logical request/response per call against an
// authenticated connection. Implementations are not safe for overlapping
// calls; the session serializes them.
type Client interface {
	// Upload stores the local file in the remote directory dir.
	Upload(ctx context.Context, file, dir string) error
	// Download fetches dir/file into the local directory.
	Download(ctx context.Context, file, dir string) error
	// List returns entry names of dir in the order the server sent them.
	List(ctx context.Context, dir string) ([]string, error)
	// Delete removes dir/file.
	Delete(ctx context.Context, file, dir string) error
	// Rename renames dir/oldName to dir/newName.
	Rename(ctx context.Context, oldName, newName, dir string) error
	// Close ends the session. It is best effort.
	Close() error
}

// Dialer establishes an authenticated Client.
type Dialer interface {
	Dial(ctx context.Context, creds Credentials) (Client, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, creds Credentials) (Client, error)

// Dial calls f(ctx, creds).
func (f DialerFunc) Dial(ctx context.Context, creds Credentials) (Client, error) {
	return f(ctx, creds)
}

// Supported target schemes.
const (
	SchemeFTP  = "ftp"
	SchemeFTPS = "ftps"
	SchemeSFTP = "sftp"
)

// Target is a parsed host string.
type Target struct {
	Scheme string
	Host   string // hostname without port
	Addr   string // host:port
}

// ParseTarget accepts "host", "host:port" or "scheme://host[:port]".
// A bare host means plain FTP.
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Target{}, errors.New("empty host")
	}

	scheme := SchemeFTP
	hostport := s
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return Target{}, fmt.Errorf("invalid host %q: %w", s, err)
		}
		scheme = strings.ToLower(u.Scheme)
		hostport = u.Host
	}

	var port string
	switch scheme {
	case SchemeFTP, SchemeFTPS:
		port = "21"
	case SchemeSFTP:
		port = "22"
	default:
		return Target{}, fmt.Errorf("unsupported scheme %q", scheme)
	}

	host, p, err := net.SplitHostPort(hostport)
	if err != nil {
		// No port given
		host = strings.Trim(hostport, "[]")
		p = port
	}
	if host == "" {
		return Target{}, fmt.Errorf("invalid host %q", s)
	}

	return Target{Scheme: scheme, Host: host, Addr: net.JoinHostPort(host, p)}, nil
}

// Router picks a Dialer by the scheme of the credentials' host.
type Router struct {
	FTP  Dialer // ftp:// and ftps://
	SFTP Dialer // sftp://
}

// Dial implements Dialer.
func (r Router) Dial(ctx context.Context, creds Credentials) (Client, error) {
	t, err := ParseTarget(creds.Host)
	if err != nil {
		return nil, err
	}

	var d Dialer
	switch t.Scheme {
	case SchemeSFTP:
		d = r.SFTP
	default:
		d = r.FTP
	}
	if d == nil {
		return nil, fmt.Errorf("no dialer for scheme %q", t.Scheme)
	}
	return d.Dial(ctx, creds)
}
