package remote

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"os"
	"path"
	"path/filepath"
	"syscall"
)

// Layout maps operation arguments onto local and remote paths.
//
// Upload reads LocalDir/file and stores it as dir/base(file).
// Download reads dir/file and writes LocalDir/base(file).
// Delete and Rename address dir/name on the server only.
type Layout struct {
	LocalDir string
}

// LocalPath resolves a local file argument. Absolute paths are kept as is.
func (l Layout) LocalPath(file string) string {
	if filepath.IsAbs(file) || l.LocalDir == "" {
		return file
	}
	return filepath.Join(l.LocalDir, file)
}

// DownloadPath is where a downloaded file lands locally.
func (l Layout) DownloadPath(file string) string {
	return l.LocalPath(filepath.Base(filepath.FromSlash(file)))
}

// UploadTarget is the remote path an upload of file into dir is stored at.
func (l Layout) UploadTarget(file, dir string) string {
	return RemotePath(dir, filepath.Base(filepath.FromSlash(file)))
}

// RemotePath joins a remote directory and a name with forward slashes.
func RemotePath(dir, name string) string {
	if dir == "" {
		dir = "/"
	}
	return path.Join(dir, filepath.ToSlash(name))
}

// writeFile copies r into a temporary file next to dst and renames it into
// place, so a failed download never leaves a truncated file behind.
func writeFile(dst string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".ferry-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// classify wraps transport-level failures with ErrConnLost.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrConnLost) {
		return err
	}
	if isConnLost(err) {
		return fmt.Errorf("%w: %w", ErrConnLost, err)
	}
	return err
}

// isConnLost reports failures of the established transport. Other network
// errors, such as a refused data connection, fail only the operation.
func isConnLost(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	// 421: service not available, closing control connection
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code == 421
}
