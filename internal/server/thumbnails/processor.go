// Package thumbnails turns queued image uploads into fixed-width derived
// blobs.
package thumbnails

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/imaging"
	"github.com/dmitrijs2005/filesmanager/internal/server/blobs"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/files"
	"golang.org/x/sync/errgroup"
)

// State is the stage a job reached.
type State string

const (
	StateReceived   State = "received"
	StateValidating State = "validating"
	StateResizing   State = "resizing"
	StatePersisted  State = "persisted"
	StateFailed     State = "failed"
)

// Result is the outcome of one job. Err is set iff State is StateFailed.
// Written lists the derived paths stored before the job ended, which may
// be a subset of all widths on failure.
type Result struct {
	State   State
	Err     error
	Written []string
}

// ResizeFunc scales an encoded image to width pixels.
type ResizeFunc func(src []byte, width int) ([]byte, error)

// Processor runs a single thumbnail job against the metadata and blob stores.
type Processor struct {
	repo   files.Repository
	blobs  blobs.Store
	resize ResizeFunc
	widths []int
}

// NewProcessor returns a Processor that writes every width in
// models.ThumbnailWidths.
func NewProcessor(repo files.Repository, store blobs.Store) *Processor {
	return &Processor{
		repo:   repo,
		blobs:  store,
		resize: imaging.Resize,
		widths: models.ThumbnailWidths,
	}
}

// Process derives every thumbnail width of the job's image. Rerunning a job
// overwrites the same paths with identical bytes.
func (p *Processor) Process(ctx context.Context, job models.ThumbnailJob) Result {
	if job.FileID == "" || job.UserID == "" {
		return failed(common.ErrMissingField)
	}

	f, err := p.repo.GetOwned(ctx, job.FileID, job.UserID)
	if errors.Is(err, common.ErrNotFound) {
		return failed(common.ErrFileNotFound)
	}
	if err != nil {
		return failed(fmt.Errorf("%w: metadata: %v", common.ErrReadFailure, err))
	}
	if f.LocalPath == "" {
		return failed(common.ErrLocalPathNotFound)
	}

	src, err := p.blobs.Read(ctx, f.LocalPath)
	if errors.Is(err, blobs.ErrBlobNotFound) {
		return failed(common.ErrLocalPathNotFound)
	}
	if err != nil {
		return failed(fmt.Errorf("%w: source %s: %v", common.ErrReadFailure, f.LocalPath, err))
	}

	written := make([]string, len(p.widths))
	g, gctx := errgroup.WithContext(ctx)
	for i, width := range p.widths {
		g.Go(func() error {
			out, err := p.resize(src, width)
			if err != nil {
				return fmt.Errorf("%w: width %d: %v", common.ErrResizeFailure, width, err)
			}
			path := blobs.DerivedPath(f.LocalPath, width)
			if err := p.blobs.Write(gctx, path, out); err != nil {
				return fmt.Errorf("%w: %s: %v", common.ErrWriteFailure, path, err)
			}
			written[i] = path
			return nil
		})
	}
	err = g.Wait()

	res := Result{State: StatePersisted, Written: compact(written)}
	if err != nil {
		res.State = StateFailed
		res.Err = err
	}
	return res
}

func failed(err error) Result {
	return Result{State: StateFailed, Err: err}
}

func compact(paths []string) []string {
	out := paths[:0]
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
