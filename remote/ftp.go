package remote

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPDialer dials FTP servers, upgrading to explicit TLS for ftps:// hosts.
type FTPDialer struct {
	Layout
	Timeout   time.Duration
	TLSConfig *tls.Config // optional; ServerName defaults to the target host
	Logger    *slog.Logger
}

// Dial connects and logs in.
func (d *FTPDialer) Dial(ctx context.Context, creds Credentials) (Client, error) {
	t, err := ParseTarget(creds.Host)
	if err != nil {
		return nil, err
	}

	opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if d.Timeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(d.Timeout))
	}
	if t.Scheme == SchemeFTPS {
		cfg := &tls.Config{}
		if d.TLSConfig != nil {
			cfg = d.TLSConfig.Clone()
		}
		if cfg.ServerName == "" {
			cfg.ServerName = t.Host
		}
		if cfg.ClientSessionCache == nil {
			cfg.ClientSessionCache = tls.NewLRUClientSessionCache(0)
		}
		opts = append(opts, ftp.DialWithExplicitTLS(cfg))
	}

	conn, err := ftp.Dial(t.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.Addr, err)
	}
	if err := conn.Login(creds.User, creds.Secret); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("login as %s: %w", creds.User, err)
	}

	logger := d.Logger
	if logger == nil {
		logger = discardLogger
	}
	logger.Debug("ftp session established", "addr", t.Addr, "user", creds.User, "tls", t.Scheme == SchemeFTPS)

	return &ftpClient{conn: conn, layout: d.Layout, logger: logger}, nil
}

// ftpClient adapts *ftp.ServerConn to Client. The underlying library has no
// per-call context; deadlines come from the dial timeout.
type ftpClient struct {
	conn   *ftp.ServerConn
	layout Layout
	logger *slog.Logger
}

func (c *ftpClient) Upload(_ context.Context, file, dir string) error {
	f, err := os.Open(c.layout.LocalPath(file))
	if err != nil {
		return err
	}
	defer f.Close()

	target := c.layout.UploadTarget(file, dir)
	c.logger.Debug("STOR", "path", target)
	return classify(c.conn.Stor(target, f))
}

func (c *ftpClient) Download(_ context.Context, file, dir string) error {
	source := RemotePath(dir, file)
	c.logger.Debug("RETR", "path", source)

	resp, err := c.conn.Retr(source)
	if err != nil {
		return classify(err)
	}
	// Close must run before the next command on the control connection
	err = writeFile(c.layout.DownloadPath(file), resp)
	if cerr := resp.Close(); err == nil {
		err = cerr
	}
	return classify(err)
}

func (c *ftpClient) List(_ context.Context, dir string) ([]string, error) {
	c.logger.Debug("LIST", "path", dir)
	entries, err := c.conn.List(dir)
	if err != nil {
		return nil, classify(err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		names = append(names, e.Name)
	}
	return names, nil
}

func (c *ftpClient) Delete(_ context.Context, file, dir string) error {
	target := RemotePath(dir, file)
	c.logger.Debug("DELE", "path", target)
	return classify(c.conn.Delete(target))
}

func (c *ftpClient) Rename(_ context.Context, oldName, newName, dir string) error {
	from, to := RemotePath(dir, oldName), RemotePath(dir, newName)
	c.logger.Debug("RNFR/RNTO", "from", from, "to", to)
	return classify(c.conn.Rename(from, to))
}

func (c *ftpClient) Close() error {
	return c.conn.Quit()
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
