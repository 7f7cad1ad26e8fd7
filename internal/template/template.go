package template

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"baker/internal/fileutil"
	"baker/internal/services"
)

// Duplicate copies the editing template into projectsDir, named after the
// project title with the template's extension. An existing project file is
// never overwritten so a re-run cannot clobber editing work. Returns the
// path of the duplicated file.
func Duplicate(ctx context.Context, templatePath, projectsDir, title string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrTemplate, "creating_template", "duplicate", "cancelled", err)
	}
	if templatePath == "" {
		return "", services.Wrap(services.ErrTemplate, "creating_template", "duplicate", "no template path configured", nil)
	}
	if title == "" {
		return "", services.Wrap(services.ErrTemplate, "creating_template", "duplicate", "project title is empty", nil)
	}

	info, err := os.Stat(templatePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrTemplate, "creating_template", "duplicate",
				fmt.Sprintf("template not found at %s", templatePath), err)
		}
		return "", services.Wrap(services.ErrTemplate, "creating_template", "duplicate", "stat template", err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrTemplate, "creating_template", "duplicate",
			fmt.Sprintf("template path %s is a directory", templatePath), nil)
	}

	if err := os.MkdirAll(projectsDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrTemplate, "creating_template", "duplicate", "create projects folder", err)
	}

	dest := filepath.Join(projectsDir, title+filepath.Ext(templatePath))
	if _, err := os.Stat(dest); err == nil {
		return "", services.Wrap(services.ErrTemplate, "creating_template", "duplicate",
			fmt.Sprintf("project file already exists at %s", dest), nil)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", services.Wrap(services.ErrTemplate, "creating_template", "duplicate", "stat destination", err)
	}

	// The duplicate keeps the template's permissions.
	if err := fileutil.CopyFileMode(templatePath, dest, info.Mode().Perm()); err != nil {
		return "", services.Wrap(services.ErrTemplate, "creating_template", "duplicate", "copy template", err)
	}
	return dest, nil
}
