package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const stagingDir = ".staging"

// LocalStore keeps attachments on local disk below Root. Committed files are
// served by the HTTP layer under URLPrefix.
type LocalStore struct {
	Root      string
	URLPrefix string
}

// NewLocalStore creates the root and staging directories.
func NewLocalStore(root, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(root, stagingDir), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Root: root, URLPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Stage implements Store.
func (l *LocalStore) Stage(_ context.Context, f File) (Staged, error) {
	ct, body, err := sniff(f.Body)
	if err != nil {
		return Staged{}, err
	}
	key := newKey(ct)

	out, err := os.OpenFile(l.stagingPath(key), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Staged{}, err
	}
	n, err := io.Copy(out, body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(l.stagingPath(key))
		return Staged{}, err
	}

	return Staged{
		Key:          key,
		URL:          l.URLPrefix + "/" + key,
		OriginalName: filepath.Base(f.Name),
		MimeType:     ct,
		Size:         n,
	}, nil
}

// Commit implements Store.
func (l *LocalStore) Commit(_ context.Context, s Staged) error {
	if err := validKey(s.Key); err != nil {
		return err
	}
	return os.Rename(l.stagingPath(s.Key), filepath.Join(l.Root, s.Key))
}

// Discard implements Store.
func (l *LocalStore) Discard(_ context.Context, s Staged) error {
	if err := validKey(s.Key); err != nil {
		return err
	}
	return removeIfExists(l.stagingPath(s.Key))
}

// Delete implements Store.
func (l *LocalStore) Delete(_ context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	return removeIfExists(filepath.Join(l.Root, key))
}

// SweepStaging removes staged files older than olderThan and returns how many were removed.
func (l *LocalStore) SweepStaging(_ context.Context, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(filepath.Join(l.Root, stagingDir))
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || e.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := removeIfExists(l.stagingPath(e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (l *LocalStore) stagingPath(key string) string {
	return filepath.Join(l.Root, stagingDir, key)
}

func removeIfExists(p string) error {
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
