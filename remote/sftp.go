package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPDialer dials sftp:// hosts with password authentication.
type SFTPDialer struct {
	Layout
	Timeout time.Duration
	// KnownHosts is an OpenSSH known_hosts file. When empty, host keys are
	// not verified and a warning is logged on every dial.
	KnownHosts string
	Logger     *slog.Logger
}

// Dial connects, authenticates and starts the sftp subsystem.
func (d *SFTPDialer) Dial(ctx context.Context, creds Credentials) (Client, error) {
	t, err := ParseTarget(creds.Host)
	if err != nil {
		return nil, err
	}

	logger := d.Logger
	if logger == nil {
		logger = discardLogger
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if d.KnownHosts != "" {
		hostKey, err = knownhosts.New(d.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("known_hosts: %w", err)
		}
	} else {
		logger.Warn("sftp host key not verified", "addr", t.Addr)
	}

	cfg := &ssh.ClientConfig{
		User:            creds.User,
		Auth:            []ssh.AuthMethod{ssh.Password(creds.Secret)},
		HostKeyCallback: hostKey,
		Timeout:         d.Timeout,
	}

	dialer := &net.Dialer{Timeout: d.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", t.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.Addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, t.Addr, cfg)
	if err != nil {
		netConn.Close()
		return nil, fmt.Errorf("ssh handshake: %w", err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("sftp subsystem: %w", err)
	}

	logger.Debug("sftp session established", "addr", t.Addr, "user", creds.User)
	return &sftpClient{ssh: sshClient, sftp: client, layout: d.Layout, logger: logger}, nil
}

type sftpClient struct {
	ssh    *ssh.Client
	sftp   *sftp.Client
	layout Layout
	logger *slog.Logger
}

func (c *sftpClient) Upload(_ context.Context, file, dir string) error {
	src, err := os.Open(c.layout.LocalPath(file))
	if err != nil {
		return err
	}
	defer src.Close()

	target := c.layout.UploadTarget(file, dir)
	c.logger.Debug("sftp put", "path", target)

	dst, err := c.sftp.Create(target)
	if err != nil {
		return classify(err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return classify(err)
	}
	return classify(dst.Close())
}

func (c *sftpClient) Download(_ context.Context, file, dir string) error {
	source := RemotePath(dir, file)
	c.logger.Debug("sftp get", "path", source)

	src, err := c.sftp.Open(source)
	if err != nil {
		return classify(err)
	}
	defer src.Close()

	return classify(writeFile(c.layout.DownloadPath(file), src))
}

func (c *sftpClient) List(_ context.Context, dir string) ([]string, error) {
	c.logger.Debug("sftp readdir", "path", dir)
	infos, err := c.sftp.ReadDir(dir)
	if err != nil {
		return nil, classify(err)
	}

	names := make([]string, len(infos))
	for i, fi := range infos {
		names[i] = fi.Name()
	}
	return names, nil
}

func (c *sftpClient) Delete(_ context.Context, file, dir string) error {
	target := RemotePath(dir, file)
	c.logger.Debug("sftp remove", "path", target)
	return classify(c.sftp.Remove(target))
}

func (c *sftpClient) Rename(_ context.Context, oldName, newName, dir string) error {
	from, to := RemotePath(dir, oldName), RemotePath(dir, newName)
	c.logger.Debug("sftp rename", "from", from, "to", to)
	return classify(c.sftp.Rename(from, to))
}

func (c *sftpClient) Close() error {
	err := c.sftp.Close()
	if cerr := c.ssh.Close(); err == nil {
		err = cerr
	}
	return err
}
