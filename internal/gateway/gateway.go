// Package gateway implements the workflow's command boundary on top of the
// real filesystem: preflight validation, folder creation, breadcrumbs
// persistence, the copy engine, template duplication, and the completion
// prompt.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"baker/internal/config"
	"baker/internal/copier"
	"baker/internal/logging"
	"baker/internal/manifest"
	"baker/internal/preflight"
	"baker/internal/progress"
	"baker/internal/prompt"
	"baker/internal/services"
	"baker/internal/template"
	"baker/internal/workflow"
)

// FootageDirName is the parent of the per-camera folders.
const FootageDirName = "Footage"

// ProjectsDirName holds the duplicated editing template.
const ProjectsDirName = "Projects"

// Gateway is the production CommandGateway.
type Gateway struct {
	cfg      *config.Config
	logger   *slog.Logger
	prompter *prompt.Prompter
}

// New builds a Gateway. A nil prompter gets the default terminal prompter.
func New(cfg *config.Config, logger *slog.Logger, prompter *prompt.Prompter) *Gateway {
	if logger == nil {
		logger = logging.NewNop()
	}
	if prompter == nil {
		prompter = prompt.New(logger)
	}
	return &Gateway{cfg: cfg, logger: logger.With(logging.String(logging.FieldComponent, "gateway")), prompter: prompter}
}

func (g *Gateway) ValidateDestination(ctx context.Context, snapshot workflow.Context) (string, error) {
	req := preflight.Request{
		DestinationRoot: snapshot.DestinationRoot,
		Title:           snapshot.Title,
		CameraCount:     snapshot.CameraCount,
		Files:           snapshot.Files,
		FreeSpaceSlack:  uint64(g.cfg.Copy.FreeSpaceSlackMiB) << 20,
	}
	if req.DestinationRoot == "" {
		req.DestinationRoot = g.cfg.Paths.DestinationRoot
	}
	return preflight.Check(ctx, req)
}

// CreateProjectFolders lays out the project tree:
//
//	<root>/<title>/Footage/Camera 1..N/
//	<root>/<title>/Projects/
//	plus any configured extra folders.
//
// MkdirAll keeps the operation idempotent across retries.
func (g *Gateway) CreateProjectFolders(ctx context.Context, destinationRoot, title string, cameraCount int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrFolderCreation, "creating_folders", "mkdir", "cancelled", err)
	}
	if destinationRoot == "" {
		destinationRoot = g.cfg.Paths.DestinationRoot
	}
	projectFolder := filepath.Join(destinationRoot, title)

	dirs := []string{projectFolder}
	for cam := 1; cam <= cameraCount; cam++ {
		dirs = append(dirs, filepath.Join(projectFolder, FootageDirName, fmt.Sprintf("Camera %d", cam)))
	}
	dirs = append(dirs, filepath.Join(projectFolder, ProjectsDirName))
	for _, extra := range g.cfg.Project.ExtraFolders {
		dirs = append(dirs, filepath.Join(projectFolder, extra))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", services.Wrap(services.ErrFolderCreation, "creating_folders", "mkdir",
				fmt.Sprintf("create %s", dir), err)
		}
	}
	logging.WithContext(ctx, g.logger).Info("project folders created",
		logging.String("project_folder", projectFolder),
		logging.Int("cameras", cameraCount),
	)
	return projectFolder, nil
}

func (g *Gateway) WriteManifest(ctx context.Context, projectFolder string, m manifest.Manifest) error {
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrManifest, "saving_manifest", "write", "cancelled", err)
	}
	if err := manifest.Write(projectFolder, m); err != nil {
		return err
	}
	logging.WithContext(ctx, g.logger).Info("breadcrumbs saved", logging.String("path", manifest.Path(projectFolder)))
	return nil
}

func (g *Gateway) StartCopy(ctx context.Context, files []workflow.FileEntry, projectFolder string) (progress.Source, error) {
	if len(files) == 0 {
		return nil, services.Wrap(services.ErrCopy, "copying_files", "start", "no files to copy", nil)
	}
	items := make([]copier.Item, 0, len(files))
	for _, entry := range files {
		name := entry.DisplayName
		if name == "" {
			name = filepath.Base(entry.SourcePath)
		}
		items = append(items, copier.Item{
			Camera:     entry.Camera,
			SourcePath: entry.SourcePath,
			DestPath:   filepath.Join(projectFolder, FootageDirName, fmt.Sprintf("Camera %d", entry.Camera), name),
		})
	}
	opts := copier.Options{
		Verify:   g.cfg.Copy.Verify,
		Interval: time.Duration(g.cfg.Copy.ProgressIntervalMS) * time.Millisecond,
	}
	logging.WithContext(ctx, g.logger).Info("copy started",
		logging.Int("files", len(items)),
		logging.Bool("verify", opts.Verify),
	)
	return copier.Start(ctx, items, opts), nil
}

func (g *Gateway) DuplicateTemplate(ctx context.Context, destinationFolder, title string) error {
	dest, err := template.Duplicate(ctx, g.cfg.Paths.TemplatePath, destinationFolder, title)
	if err != nil {
		return err
	}
	logging.WithContext(ctx, g.logger).Info("editing template duplicated", logging.String("path", dest))
	return nil
}

func (g *Gateway) PromptConfirmation(ctx context.Context, message, title, destinationPath string) error {
	if !g.cfg.Workflow.PromptOnSuccess {
		return nil
	}
	return g.prompter.Completion(ctx, title, message, destinationPath)
}

var _ workflow.CommandGateway = (*Gateway)(nil)
