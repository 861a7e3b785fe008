// Package documents implements the ingestion sink and the purge operation
// over a user's raw-data region.
package documents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/tubequery/internal/common"
	"github.com/dmitrijs2005/tubequery/internal/logging"
	"github.com/dmitrijs2005/tubequery/internal/server/namespace"
	"github.com/dmitrijs2005/tubequery/internal/server/rag"
	"github.com/google/uuid"
)

// IndexDropper releases engine-side resources tied to a user's index before
// the region is destroyed.
type IndexDropper interface {
	Drop(ctx context.Context, dir string) error
}

type Service struct {
	allocator *namespace.Allocator
	locker    *namespace.Locker
	dropper   IndexDropper
	logger    logging.Logger
}

func NewService(allocator *namespace.Allocator, locker *namespace.Locker, dropper IndexDropper, logger logging.Logger) *Service {
	return &Service{
		allocator: allocator,
		locker:    locker,
		dropper:   dropper,
		logger:    logger.With("module", "documents"),
	}
}

// Ingest stores content as a new file in the user's raw region and returns
// the created file name. Files are named by ingestion timestamp plus a
// random suffix, so two ingests within the same second never collide.
func (s *Service) Ingest(ctx context.Context, username, content string) (string, error) {

	if content == "" {
		return "", common.ErrorInvalidInput
	}

	unlock := s.locker.RLock(username)
	defer unlock()

	rawDir, _, err := s.allocator.Resolve(username)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%d-%s.txt", time.Now().Unix(), uuid.NewString()[:8])
	path := filepath.Join(rawDir, name)

	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		return "", fmt.Errorf("writing document: %w", err)
	}

	s.logger.Info(ctx, "document ingested", "username", username, "name", name)
	return name, nil
}

// ReadAll loads every document currently present in the user's raw region,
// with no filtering. The caller is responsible for holding the user's lock.
func (s *Service) ReadAll(username string) ([]rag.Document, error) {

	rawDir, _, err := s.allocator.Resolve(username)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(rawDir)
	if err != nil {
		return nil, fmt.Errorf("reading raw region: %w", err)
	}

	var docs []rag.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(rawDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading document %s: %w", entry.Name(), err)
		}
		docs = append(docs, rag.Document{Name: entry.Name(), Content: string(content)})
	}

	return docs, nil
}

// Purge destroys both of the user's regions and recreates them empty, under
// the user's exclusive lock. Engine-side resources are released first so a
// failed purge prefers "still has old data" over "half deleted".
func (s *Service) Purge(ctx context.Context, username string) error {

	unlock := s.locker.Lock(username)
	defer unlock()

	_, indexDir, err := s.allocator.Resolve(username)
	if err != nil {
		return err
	}

	if err := s.dropper.Drop(ctx, indexDir); err != nil {
		return fmt.Errorf("dropping index: %w", err)
	}

	if err := s.allocator.Purge(username); err != nil {
		return fmt.Errorf("purging regions: %w", err)
	}

	s.logger.Info(ctx, "regions purged", "username", username)
	return nil
}
