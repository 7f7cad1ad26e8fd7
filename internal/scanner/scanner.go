// Package scanner inventories project folders under a destination root,
// verifies their breadcrumbs manifests, and refreshes records that have
// drifted from what is on disk.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"baker/internal/fileutil"
	"baker/internal/logging"
	"baker/internal/manifest"
)

// Status classifies one discovered project folder.
type Status string

const (
	// StatusOK means the manifest matches the folder contents.
	StatusOK Status = "ok"
	// StatusStale means the folder size has drifted from the manifest's
	// record by more than the stale threshold.
	StatusStale Status = "stale"
	// StatusMissing means a folder under the root carries no manifest.
	StatusMissing Status = "missing"
	// StatusCorrupt means the manifest exists but cannot be parsed or
	// fails validation.
	StatusCorrupt Status = "corrupt"
)

// staleThresholdBytes is how far the on-disk size may drift from the
// manifest's recorded size before the record counts as stale.
const staleThresholdBytes = 1024

// skipDirNames are never descended into.
var skipDirNames = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	"lost+found":   {},
	".Trash":       {},
}

// Options control a scan.
type Options struct {
	// MaxDepth bounds how deep the walk descends below the root.
	// Zero means only direct children.
	MaxDepth int
	// IncludeHidden also descends into dot-directories.
	IncludeHidden bool
	// Refresh rewrites stale manifests with the measured folder size.
	Refresh bool
	// ScannedBy is recorded in refreshed manifests.
	ScannedBy string
}

// Project is one scanned project folder.
type Project struct {
	Path      string
	Status    Status
	Manifest  *manifest.Manifest
	SizeBytes uint64
	Detail    string
	Refreshed bool
}

// Result aggregates a scan of one root.
type Result struct {
	Root     string
	Projects []Project
	// Errors holds per-path problems that did not stop the scan.
	Errors []string
}

// Scan walks root looking for folders carrying a breadcrumbs manifest.
// Folders with no manifest anywhere below them are reported as missing;
// walk errors are collected, not fatal.
func Scan(ctx context.Context, root string, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldComponent, "scanner"))

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	result := &Result{Root: root}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read scan root: %w", err)
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() || skipDir(entry.Name(), opts.IncludeHidden) {
			continue
		}
		child := filepath.Join(root, entry.Name())
		found := scanTree(ctx, child, opts, 0, result)
		if !found {
			result.Projects = append(result.Projects, Project{
				Path:   child,
				Status: StatusMissing,
				Detail: "no breadcrumbs manifest found",
			})
		}
	}

	logger.Info("scan complete",
		logging.String("root", root),
		logging.Int("projects", len(result.Projects)),
		logging.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// scanTree inspects dir and, when it holds no manifest, descends while the
// depth budget lasts. Reports whether any project was found under dir.
func scanTree(ctx context.Context, dir string, opts Options, depth int, result *Result) bool {
	if err := ctx.Err(); err != nil {
		return true
	}

	if _, err := os.Stat(manifest.Path(dir)); err == nil {
		result.Projects = append(result.Projects, inspect(dir, opts))
		return true
	}

	if depth >= opts.MaxDepth {
		return false
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", dir, err))
		return false
	}
	found := false
	for _, entry := range entries {
		if !entry.IsDir() || skipDir(entry.Name(), opts.IncludeHidden) {
			continue
		}
		if scanTree(ctx, filepath.Join(dir, entry.Name()), opts, depth+1, result) {
			found = true
		}
	}
	return found
}

// inspect reads one project's manifest and compares the recorded folder
// size against what is on disk.
func inspect(dir string, opts Options) Project {
	project := Project{Path: dir}

	m, err := manifest.Read(dir)
	if err != nil {
		project.Status = StatusCorrupt
		project.Detail = err.Error()
		return project
	}
	if m == nil {
		project.Status = StatusMissing
		project.Detail = "no breadcrumbs manifest found"
		return project
	}
	project.Manifest = m

	size, err := fileutil.DirSize(dir)
	if err != nil {
		project.Status = StatusCorrupt
		project.Detail = fmt.Sprintf("measure folder size: %v", err)
		return project
	}
	project.SizeBytes = uint64(size)

	if m.FolderSizeBytes != nil && sizeDelta(*m.FolderSizeBytes, project.SizeBytes) < staleThresholdBytes {
		project.Status = StatusOK
		return project
	}
	project.Status = StatusStale
	if m.FolderSizeBytes == nil {
		project.Detail = "manifest has no recorded folder size"
	} else {
		project.Detail = fmt.Sprintf("recorded %d bytes, measured %d", *m.FolderSizeBytes, project.SizeBytes)
	}

	if opts.Refresh {
		if err := refresh(dir, m, project.SizeBytes, opts.ScannedBy); err != nil {
			project.Detail = fmt.Sprintf("refresh failed: %v", err)
		} else {
			project.Refreshed = true
		}
	}
	return project
}

// refresh rewrites the manifest with the measured size and scan stamp.
func refresh(dir string, m *manifest.Manifest, size uint64, scannedBy string) error {
	updated := *m
	updated.FolderSizeBytes = &size
	now := time.Now().UTC().Format(time.RFC3339)
	updated.LastModified = &now
	if scannedBy = strings.TrimSpace(scannedBy); scannedBy != "" {
		updated.ScannedBy = &scannedBy
	}
	return manifest.Write(dir, updated)
}

func sizeDelta(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

func skipDir(name string, includeHidden bool) bool {
	if _, skip := skipDirNames[name]; skip {
		return true
	}
	if !includeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	return false
}
