package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/clusterintranet/authgate/pkg/errors"
	"github.com/clusterintranet/authgate/pkg/logger"
)

// FileStore persists one record per file under a root directory. Files are
// sharded into subdirectories named after the first two hex characters of the
// key hash so no single directory grows unbounded.
type FileStore struct {
	root string
	log  logger.Logger
}

// envelope is the on-disk record format. The original key is kept alongside
// the value so ScanAll can report it; file names are hashes.
type envelope struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// NewFileStore creates a file-backed record store rooted at dir.
func NewFileStore(dir string, log logger.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, errors.ErrInvalidRequest("file store directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.ErrServerError("cannot create record store directory").WithError(err)
	}

	return &FileStore{
		root: dir,
		log:  log.WithComponent("filestore"),
	}, nil
}

// Put writes the record atomically: serialize to a temp file in the shard
// directory, then rename over the destination. Readers never observe a
// partial write.
func (s *FileStore) Put(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.ErrInvalidRequest("record value is not JSON-serializable").WithError(err)
	}

	data, err := json.Marshal(envelope{Key: key, Value: raw})
	if err != nil {
		return errors.ErrServerError("cannot encode record envelope").WithError(err)
	}

	path := s.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		s.log.Error(ctx, "cannot create shard directory", err, logger.String("key", key))
		return errors.ErrServerError("record store write failed").WithError(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".rec-*")
	if err != nil {
		s.log.Error(ctx, "cannot create temp record file", err, logger.String("key", key))
		return errors.ErrServerError("record store write failed").WithError(err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		s.log.Error(ctx, "cannot write record", err, logger.String("key", key))
		return errors.ErrServerError("record store write failed").WithError(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.ErrServerError("record store write failed").WithError(err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		s.log.Error(ctx, "cannot rename record into place", err, logger.String("key", key))
		return errors.ErrServerError("record store write failed").WithError(err)
	}

	return nil
}

// Get reads and decodes the record. Missing files and corrupt JSON both read
// as absent; a corrupt record must never fail a request.
func (s *FileStore) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := os.ReadFile(s.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		s.log.Error(ctx, "record read failed", err, logger.String("key", key))
		return false, errors.ErrServerError("record store read failed").WithError(err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.log.Warn(ctx, "corrupt record treated as absent", logger.String("key", key), logger.Error(err))
		return false, nil
	}
	if err := json.Unmarshal(env.Value, out); err != nil {
		s.log.Warn(ctx, "corrupt record value treated as absent", logger.String("key", key), logger.Error(err))
		return false, nil
	}

	return true, nil
}

// Delete removes the record file. Already-absent files are fine; a concurrent
// sweep may have removed them first.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.pathFor(key))
	if err != nil && !os.IsNotExist(err) {
		s.log.Error(ctx, "record delete failed", err, logger.String("key", key))
		return errors.ErrServerError("record store delete failed").WithError(err)
	}
	return nil
}

// ScanAll walks every shard directory and yields each readable record.
// Unreadable or corrupt files are skipped with a log line, not surfaced.
func (s *FileStore) ScanAll(ctx context.Context, fn func(key string, raw []byte) bool) error {
	shards, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.ErrServerError("record store scan failed").WithError(err)
	}

	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}

		shardDir := filepath.Join(s.root, shard.Name())
		files, err := os.ReadDir(shardDir)
		if err != nil {
			s.log.Warn(ctx, "cannot read shard directory", logger.String("shard", shard.Name()), logger.Error(err))
			continue
		}

		for _, file := range files {
			if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
				continue
			}

			data, err := os.ReadFile(filepath.Join(shardDir, file.Name()))
			if err != nil {
				// Deleted between listing and read; normal under concurrent sweeps.
				continue
			}

			var env envelope
			if err := json.Unmarshal(data, &env); err != nil {
				s.log.Warn(ctx, "skipping corrupt record during scan", logger.String("file", file.Name()))
				continue
			}

			if !fn(env.Key, env.Value) {
				return nil
			}
		}
	}

	return nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error {
	return nil
}

// pathFor maps a key to root/<first 2 hash hex chars>/<hash>.json.
func (s *FileStore) pathFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(sum[:])
	return filepath.Join(s.root, name[:2], name+".json")
}
