package sentry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oshokin/face-sentry/internal/logger"
)

// Retention deletes old detection artifacts from the scratch directory.
// It keeps the newest MaxFiles files and drops anything older than MaxAge;
// a zero value disables the corresponding limit.
type Retention struct {
	// Dir is the scratch directory.
	Dir string
	// MaxFiles is the number of newest artifacts kept.
	MaxFiles int
	// MaxAge is the age after which artifacts are removed.
	MaxAge time.Duration
	// now is the clock, replaced in tests.
	now func() time.Time
}

// NewRetention creates a retention policy over dir.
func NewRetention(dir string, maxFiles int, maxAge time.Duration) *Retention {
	return &Retention{
		Dir:      dir,
		MaxFiles: maxFiles,
		MaxAge:   maxAge,
		now:      time.Now,
	}
}

type artifact struct {
	path    string
	modTime time.Time
}

// Prune removes artifacts exceeding the policy. Files that vanish meanwhile are ignored.
func (r *Retention) Prune(ctx context.Context) error {
	if r.MaxFiles <= 0 && r.MaxAge <= 0 {
		return nil
	}

	paths, err := filepath.Glob(filepath.Join(r.Dir, ArtifactPattern))
	if err != nil {
		return fmt.Errorf("list artifacts: %w", err)
	}

	artifacts := make([]artifact, 0, len(paths))

	for _, path := range paths {
		info, statErr := os.Stat(path)
		if statErr != nil || !info.Mode().IsRegular() {
			continue
		}

		artifacts = append(artifacts, artifact{path: path, modTime: info.ModTime()})
	}

	// Newest first.
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].modTime.After(artifacts[j].modTime)
	})

	var (
		cutoff  = r.now().Add(-r.MaxAge)
		errs    []error
		removed int
	)

	for i, a := range artifacts {
		tooMany := r.MaxFiles > 0 && i >= r.MaxFiles
		tooOld := r.MaxAge > 0 && a.modTime.Before(cutoff)

		if !tooMany && !tooOld {
			continue
		}

		if err = os.Remove(a.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}

		removed++
	}

	if removed > 0 {
		logger.DebugKV(ctx, "Old artifacts removed", "count", removed, "dir", r.Dir)
	}

	return errors.Join(errs...)
}
