// Package preflight verifies that a destination can receive a project
// before any folder is created or byte is copied.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"baker/internal/services"
	"baker/internal/workflow"
)

// Request carries everything the checks need.
type Request struct {
	DestinationRoot string
	Title           string
	CameraCount     int
	Files           []workflow.FileEntry
	FreeSpaceSlack  uint64 // extra bytes required beyond the source total
}

// unsafeTitleChars are rejected so the title remains a single valid path
// component on every filesystem baker targets.
const unsafeTitleChars = `/\:*?"<>|`

// Check validates the request and returns the project folder that a build
// would create. It fails fast on the first problem found.
func Check(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrValidation, "validating", "preflight", "cancelled", err)
	}
	if err := checkTitle(req.Title); err != nil {
		return "", err
	}
	if req.CameraCount < 1 {
		return "", services.Wrap(services.ErrValidation, "validating", "preflight",
			fmt.Sprintf("camera count must be at least 1, got %d", req.CameraCount), nil)
	}
	if len(req.Files) == 0 {
		return "", services.Wrap(services.ErrValidation, "validating", "preflight", "no source files selected", nil)
	}

	totalBytes, err := checkSources(req.Files, req.CameraCount)
	if err != nil {
		return "", err
	}
	if err := checkDestinationRoot(req.DestinationRoot); err != nil {
		return "", err
	}
	if err := checkFreeSpace(req.DestinationRoot, totalBytes+req.FreeSpaceSlack); err != nil {
		return "", err
	}

	projectFolder := filepath.Join(req.DestinationRoot, req.Title)
	if _, err := os.Stat(projectFolder); err == nil {
		return "", services.Wrap(services.ErrValidation, "validating", "preflight",
			fmt.Sprintf("project folder already exists at %s", projectFolder), nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", services.Wrap(services.ErrValidation, "validating", "preflight", "stat project folder", err)
	}
	return projectFolder, nil
}

func checkTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return services.Wrap(services.ErrValidation, "validating", "preflight", "project title is empty", nil)
	}
	if strings.ContainsAny(trimmed, unsafeTitleChars) {
		return services.Wrap(services.ErrValidation, "validating", "preflight",
			fmt.Sprintf("project title %q contains characters unsafe for folder names", trimmed), nil)
	}
	if trimmed == "." || trimmed == ".." {
		return services.Wrap(services.ErrValidation, "validating", "preflight",
			fmt.Sprintf("project title %q is not a valid folder name", trimmed), nil)
	}
	return nil
}

func checkSources(files []workflow.FileEntry, cameraCount int) (uint64, error) {
	var total uint64
	for _, entry := range files {
		if entry.Camera < 1 || entry.Camera > cameraCount {
			return 0, services.Wrap(services.ErrValidation, "validating", "preflight",
				fmt.Sprintf("file %s assigned to camera %d, outside 1..%d", entry.SourcePath, entry.Camera, cameraCount), nil)
		}
		info, err := os.Stat(entry.SourcePath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return 0, services.Wrap(services.ErrValidation, "validating", "preflight",
					fmt.Sprintf("source file missing: %s", entry.SourcePath), err)
			}
			return 0, services.Wrap(services.ErrValidation, "validating", "preflight", "stat source file", err)
		}
		if !info.Mode().IsRegular() {
			return 0, services.Wrap(services.ErrValidation, "validating", "preflight",
				fmt.Sprintf("source %s is not a regular file", entry.SourcePath), nil)
		}
		total += uint64(info.Size())
	}
	return total, nil
}

func checkDestinationRoot(root string) error {
	if root == "" {
		return services.Wrap(services.ErrValidation, "validating", "preflight", "no destination folder configured", nil)
	}
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrValidation, "validating", "preflight",
				fmt.Sprintf("destination %s does not exist", root), err)
		}
		return services.Wrap(services.ErrValidation, "validating", "preflight", "stat destination", err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrValidation, "validating", "preflight",
			fmt.Sprintf("destination %s is not a folder", root), nil)
	}
	if err := unix.Access(root, unix.W_OK|unix.R_OK); err != nil {
		return services.Wrap(services.ErrValidation, "validating", "preflight",
			fmt.Sprintf("destination %s is not writable", root), err)
	}
	return nil
}

func checkFreeSpace(root string, required uint64) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(root, &stat); err != nil {
		return services.Wrap(services.ErrValidation, "validating", "preflight", "query free space", err)
	}
	available := stat.Bavail * uint64(stat.Bsize)
	if available < required {
		return services.Wrap(services.ErrValidation, "validating", "preflight",
			fmt.Sprintf("not enough free space at %s: need %s, have %s",
				root, humanize.IBytes(required), humanize.IBytes(available)), nil)
	}
	return nil
}
