package store

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/basinworks/filings-tracker/constants"
)

// Object is one document visible in the store.
type Object struct {
	Key  string
	Size int64
}

// DocumentStore is how the processor reaches filing documents. Keys are
// store-relative paths.
type DocumentStore interface {
	FetchBytes(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]Object, error)
}

// FSStore serves documents from a directory tree on the local filesystem.
type FSStore struct {
	root       string
	skipHidden bool
	logger     *slog.Logger
}

func NewFSStore(root string, logger *slog.Logger) (*FSStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving store root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("store root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store root %s is not a directory", abs)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FSStore{root: abs, skipHidden: true, logger: logger}, nil
}

func (s *FSStore) FetchBytes(_ context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// List walks the tree under prefix and returns every allowed document,
// sorted by key for stable processing order.
func (s *FSStore) List(_ context.Context, prefix string) ([]Object, error) {
	start, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}

	var objects []Object
	err = filepath.WalkDir(start, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			s.logger.Warn("store.list.skip", "path", path, "err", walkErr)
			return nil
		}
		name := d.Name()
		if s.skipHidden && strings.HasPrefix(name, ".") && path != start {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(name))
		if _, ok := constants.AllowedExtensions[ext]; !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			s.logger.Warn("store.list.skip", "path", path, "err", err)
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		objects = append(objects, Object{Key: filepath.ToSlash(rel), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", prefix, err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// resolve maps a store key onto the root and refuses keys that escape it.
func (s *FSStore) resolve(key string) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if path != s.root && !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes store root", key)
	}
	return path, nil
}
