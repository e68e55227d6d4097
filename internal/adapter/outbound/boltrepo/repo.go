// Package boltrepo stores generated tools in a bbolt database so that a
// restarted server can serve the last discovery run without repeating it.
package boltrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

var bucketTools = []byte("tools")

// ToolRepository implements usecase.ToolRepository on bbolt. Definitions
// are stored as JSON keyed by tool name; bbolt keeps keys sorted, so List
// needs no extra ordering.
type ToolRepository struct {
	db     *bolt.DB
	logger *slog.Logger
}

// Open opens or creates the database at path.
func Open(path string, logger *slog.Logger) (*ToolRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTools)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &ToolRepository{db: db, logger: logger.With("component", "bolt_repo")}, nil
}

// Close closes the database.
func (r *ToolRepository) Close() error {
	return r.db.Close()
}

// Save replaces the stored tool set with defs in one transaction.
func (r *ToolRepository) Save(ctx context.Context, defs []domain.ToolDefinition) error {
	count := 0
	err := r.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketTools); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		b, err := tx.CreateBucket(bucketTools)
		if err != nil {
			return err
		}
		for i, def := range defs {
			if def.Name == "" {
				r.logger.Warn("Skipping tool with empty name during save", slog.Int("index", i))
				continue
			}
			data, err := json.Marshal(def)
			if err != nil {
				return fmt.Errorf("failed to marshal tool %s: %w", def.Name, err)
			}
			if err := b.Put([]byte(def.Name), data); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save tools", slog.Any("error", err))
		return fmt.Errorf("failed to save tools: %w", err)
	}
	r.logger.Info("Saved tools", slog.Int("count", count))
	return nil
}

// List returns every stored tool ordered by name.
func (r *ToolRepository) List(ctx context.Context) ([]domain.ToolDefinition, error) {
	list := []domain.ToolDefinition{}
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTools)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var def domain.ToolDefinition
			if err := json.Unmarshal(v, &def); err != nil {
				return fmt.Errorf("failed to decode tool %s: %w", k, err)
			}
			list = append(list, def)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("Listed tools from repository", slog.Int("count", len(list)))
	return list, nil
}

// FindToolByName returns usecase.ErrToolNotFound when name is unknown.
func (r *ToolRepository) FindToolByName(ctx context.Context, name string) (*domain.ToolDefinition, error) {
	var (
		def   domain.ToolDefinition
		found bool
	)
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTools)
		if b == nil {
			return nil
		}
		data := b.Get([]byte(name))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &def)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read tool %s: %w", name, err)
	}
	if !found {
		r.logger.Warn("Tool definition not found", slog.String("tool_name", name))
		return nil, usecase.ErrToolNotFound
	}
	return &def, nil
}
