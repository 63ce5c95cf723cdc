// Package video provides seekable frame sources for recorded jump clips.
//
// Clips arrive from the capture side as a directory of timestamped still
// frames plus a small manifest; decoding and container demuxing happen
// upstream. This keeps the analysis side free of codec dependencies
// while preserving the seek-with-timeout contract the analyzer needs.
package video

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Opener resolves an analysis job's opaque source reference into a
// frame source.
type Opener interface {
	Open(ctx context.Context, ref string) (*DirSource, error)
}

// DirOpener resolves references as subdirectories of a fixed root.
type DirOpener struct {
	root string
}

// NewDirOpener creates an opener rooted at root.
func NewDirOpener(root string) *DirOpener {
	return &DirOpener{root: root}
}

// Open validates the reference and opens the frame directory.
// References must stay inside the root.
func (o *DirOpener) Open(ctx context.Context, ref string) (*DirSource, error) {
	cleaned := filepath.Clean(ref)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return nil, fmt.Errorf("source ref %q escapes the frames root: %w", ref, ErrBadSourceRef)
	}
	return OpenDirSource(filepath.Join(o.root, cleaned))
}
