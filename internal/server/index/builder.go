// Package index implements the rebuild-on-demand workflow: the entire raw
// region is re-read and a fresh derived index replaces the previous one
// atomically. The query gateway never observes an index mid-replacement.
package index

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/tubequery/internal/common"
	"github.com/dmitrijs2005/tubequery/internal/logging"
	"github.com/dmitrijs2005/tubequery/internal/server/namespace"
	"github.com/dmitrijs2005/tubequery/internal/server/rag"
	"github.com/google/uuid"
)

// DocumentSource provides the full raw document set for one user.
type DocumentSource interface {
	ReadAll(username string) ([]rag.Document, error)
}

type Builder struct {
	allocator *namespace.Allocator
	locker    *namespace.Locker
	engine    rag.Engine
	source    DocumentSource
	logger    logging.Logger
}

func NewBuilder(allocator *namespace.Allocator, locker *namespace.Locker, engine rag.Engine, source DocumentSource, logger logging.Logger) *Builder {
	return &Builder{
		allocator: allocator,
		locker:    locker,
		engine:    engine,
		source:    source,
		logger:    logger.With("module", "index_builder"),
	}
}

// Rebuild replaces the user's derived index with one built from every
// document currently in the raw region. It runs as a critical section per
// user; on any failure the previously built index stays intact and
// readable. Rebuilding with an empty raw region is a defined failure
// (common.ErrNoDocuments), never a silently valid empty index.
func (b *Builder) Rebuild(ctx context.Context, username string) error {

	unlock := b.locker.Lock(username)
	defer unlock()

	_, indexDir, err := b.allocator.Resolve(username)
	if err != nil {
		return err
	}

	docs, err := b.source.ReadAll(username)
	if err != nil {
		return fmt.Errorf("reading raw region: %w", err)
	}
	if len(docs) == 0 {
		return common.ErrNoDocuments
	}

	// build into a sibling temp directory; the live index region is not
	// touched until the new index is complete
	tmpDir := indexDir + ".build-" + uuid.NewString()[:8]
	if err := os.MkdirAll(tmpDir, 0o770); err != nil {
		return fmt.Errorf("creating build dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := b.engine.Build(ctx, tmpDir, docs); err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	if err := b.swap(ctx, indexDir, tmpDir); err != nil {
		return err
	}

	b.logger.Info(ctx, "index rebuilt", "username", username, "documents", len(docs))
	return nil
}

// swap atomically replaces indexDir with tmpDir. The old generation is
// moved aside first and restored if the new one cannot be moved in.
func (b *Builder) swap(ctx context.Context, indexDir, tmpDir string) error {

	oldDir := indexDir + ".old-" + uuid.NewString()[:8]

	if err := os.Rename(indexDir, oldDir); err != nil {
		return fmt.Errorf("moving old index aside: %w", err)
	}

	if err := os.Rename(tmpDir, indexDir); err != nil {
		if restoreErr := os.Rename(oldDir, indexDir); restoreErr != nil {
			return fmt.Errorf("activating new index: %w (restore also failed: %v)", err, restoreErr)
		}
		return fmt.Errorf("activating new index: %w", err)
	}

	// the new generation is live; release whatever the old one held
	if err := b.engine.Drop(ctx, oldDir); err != nil {
		b.logger.Warn(ctx, "failed to release old index resources", "dir", oldDir, "error", err.Error())
	}
	if err := os.RemoveAll(oldDir); err != nil {
		b.logger.Warn(ctx, "failed to remove old index dir", "dir", oldDir, "error", err.Error())
	}

	return nil
}
