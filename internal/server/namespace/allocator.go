// Package namespace maps an authenticated username to its two isolated
// filesystem regions: one for raw ingested documents and one for the derived
// index. Region paths are always confined to the configured roots; the
// allocator validates usernames itself instead of trusting callers.
package namespace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/tubequery/internal/common"
)

const regionPerm = 0o770

// Allocator derives and maintains per-user storage regions.
type Allocator struct {
	dataRoot    string
	storageRoot string
}

func NewAllocator(dataRoot, storageRoot string) *Allocator {
	return &Allocator{dataRoot: dataRoot, storageRoot: storageRoot}
}

// validateUsername rejects anything that could escape the storage roots.
// Registration already restricts the format upstream, but this invariant
// belongs to the allocator.
func validateUsername(username string) error {
	if username == "" {
		return common.ErrorInvalidInput
	}
	if username == "." || username == ".." {
		return common.ErrorInvalidInput
	}
	if strings.ContainsAny(username, "/\\\x00") {
		return common.ErrorInvalidInput
	}
	return nil
}

// Validate reports whether username can name a region pair, applying the
// same rules as Resolve without touching the filesystem. Callers that
// persist usernames check here first so a rejected name never survives
// anywhere.
func (a *Allocator) Validate(username string) error {
	_, _, err := a.Resolve(username)
	return err
}

// Resolve returns the raw-data and index region paths for username.
// It is pure and injective: distinct usernames never share a region.
func (a *Allocator) Resolve(username string) (rawDir string, indexDir string, err error) {
	if err := validateUsername(username); err != nil {
		return "", "", err
	}

	rawDir = filepath.Join(a.dataRoot, username)
	indexDir = filepath.Join(a.storageRoot, username)

	// filepath.Join cleans the path; a result outside the root means the
	// username survived validation but still traverses upward.
	if !strings.HasPrefix(rawDir, filepath.Clean(a.dataRoot)+string(filepath.Separator)) {
		return "", "", common.ErrorInvalidInput
	}
	if !strings.HasPrefix(indexDir, filepath.Clean(a.storageRoot)+string(filepath.Separator)) {
		return "", "", common.ErrorInvalidInput
	}

	return rawDir, indexDir, nil
}

// EnsureExists creates both regions if absent. It is idempotent and never
// fails because a region already exists.
func (a *Allocator) EnsureExists(username string) error {
	rawDir, indexDir, err := a.Resolve(username)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(rawDir, regionPerm); err != nil {
		return fmt.Errorf("mkdir %s: %w", rawDir, err)
	}
	if err := os.MkdirAll(indexDir, regionPerm); err != nil {
		return fmt.Errorf("mkdir %s: %w", indexDir, err)
	}

	return nil
}

// Purge destroys both regions and recreates them empty. Safe to call when
// the regions are empty or missing; the user always ends up with both
// regions present.
func (a *Allocator) Purge(username string) error {
	rawDir, indexDir, err := a.Resolve(username)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(rawDir); err != nil {
		return fmt.Errorf("remove %s: %w", rawDir, err)
	}
	if err := os.RemoveAll(indexDir); err != nil {
		return fmt.Errorf("remove %s: %w", indexDir, err)
	}

	return a.EnsureExists(username)
}
