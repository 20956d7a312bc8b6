package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ipbench/ipsignal/pkg/errors"
)

// fsStore is the filesystem Store backend: <root>/<kind>/<key>.json.
// Writes go through a temp file plus rename so that readers and concurrent
// slice runs never observe a torn record.
type fsStore struct {
	root string
}

// NewFilesystemStore returns a Store rooted at dir, creating it if needed.
func NewFilesystemStore(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "cannot create cache root").WithDetail(dir)
	}
	return &fsStore{root: dir}, nil
}

func (s *fsStore) path(kind, key string) string {
	return filepath.Join(s.root, kind, sanitizeKey(key)+".json")
}

// sanitizeKey keeps patent IDs filename-safe.  IDs are alphanumeric in
// practice; separators are defanged rather than rejected so a malformed
// upstream ID degrades to an odd filename instead of a path traversal.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, key)
}

func (s *fsStore) Get(_ context.Context, kind, key string, dest interface{}) error {
	data, err := os.ReadFile(s.path(kind, key))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreUnavailable, "cache read failed").WithDetail(s.path(kind, key))
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreCorrupt, "cache record is not valid JSON").WithDetail(s.path(kind, key))
	}
	return nil
}

func (s *fsStore) Put(_ context.Context, kind, key string, value interface{}) error {
	dir := filepath.Join(s.root, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "cannot create kind directory").WithDetail(dir)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cache record marshal failed")
	}

	tmp, err := os.CreateTemp(dir, "."+sanitizeKey(key)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "cannot create temp file").WithDetail(dir)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "cache write failed").WithDetail(tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "cache close failed").WithDetail(tmpName)
	}
	if err := os.Rename(tmpName, s.path(kind, key)); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "cache rename failed").WithDetail(s.path(kind, key))
	}
	return nil
}

func (s *fsStore) Exists(_ context.Context, kind, key string) (bool, error) {
	_, err := os.Stat(s.path(kind, key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "cache stat failed").WithDetail(s.path(kind, key))
	}
	return true, nil
}

func (s *fsStore) Keys(_ context.Context, kind string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, kind))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStoreUnavailable, "cache list failed").WithDetail(kind)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *fsStore) Delete(_ context.Context, kind, key string) error {
	err := os.Remove(s.path(kind, key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrCodeStoreWriteFailed, "cache delete failed").WithDetail(s.path(kind, key))
	}
	return nil
}
