// Package stdlib holds the file collaborators of the build pipeline: a
// sandboxed reader and writer for compiled programs and rendered audio.
package stdlib

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

var (
	ErrPathEscape   = errors.New("stdlib/fs: path escape violation")
	ErrFileTooLarge = errors.New("stdlib/fs: file size limit exceeded")
)

// FSSandbox confines reads and writes to one directory tree.
type FSSandbox struct {
	Root        string
	MaxFileSize int
}

// NewFSSandbox roots a sandbox at root, which may start with ~ and contain
// environment variables.
func NewFSSandbox(root string, maxFileSize int) (*FSSandbox, error) {
	p, err := homedir.Expand(root)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(os.ExpandEnv(p))
	if err != nil {
		return nil, err
	}
	return &FSSandbox{Root: abs, MaxFileSize: maxFileSize}, nil
}

// resolve maps a sandbox-relative path to an absolute one inside Root.
func (s *FSSandbox) resolve(path string) (string, error) {
	clean := filepath.Join(s.Root, filepath.Clean(path))
	if clean != s.Root && !strings.HasPrefix(clean, s.Root+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrPathEscape, "%q", path)
	}
	return clean, nil
}

// WriteFile writes content to path, creating parent directories.
func (s *FSSandbox) WriteFile(path string, content []byte) error {
	clean, err := s.resolve(path)
	if err != nil {
		return err
	}
	if len(content) > s.MaxFileSize {
		return errors.Wrapf(ErrFileTooLarge, "%q: %d bytes", path, len(content))
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0755); err != nil {
		return err
	}
	return os.WriteFile(clean, content, 0644)
}

// ReadFile reads path.
func (s *FSSandbox) ReadFile(path string) ([]byte, error) {
	clean, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(clean)
	if err != nil {
		return nil, err
	}
	if info.Size() > int64(s.MaxFileSize) {
		return nil, errors.Wrapf(ErrFileTooLarge, "%q: %d bytes", path, info.Size())
	}
	return os.ReadFile(clean)
}

// create opens path for writing, creating parent directories.
func (s *FSSandbox) create(path string) (*os.File, error) {
	clean, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0755); err != nil {
		return nil, err
	}
	return os.Create(clean)
}
