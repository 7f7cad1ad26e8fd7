package workflow

import (
	"context"

	"baker/internal/copier"
	"baker/internal/manifest"
	"baker/internal/progress"
)

// CommandGateway is the boundary through which the machine invokes external
// operations. Implementations perform the real filesystem and process work;
// the machine only sequences them and translates their outcomes into events.
type CommandGateway interface {
	// ValidateDestination checks the destination root and build inputs and
	// returns the project folder the build will occupy.
	ValidateDestination(ctx context.Context, snapshot Context) (projectFolder string, err error)

	// CreateProjectFolders builds the project folder tree. Idempotent.
	CreateProjectFolders(ctx context.Context, destinationRoot, title string, cameraCount int) (projectFolder string, err error)

	// WriteManifest persists the breadcrumbs file into the project folder.
	// Atomic: a failure leaves no partially-written manifest behind.
	WriteManifest(ctx context.Context, projectFolder string, m manifest.Manifest) error

	// StartCopy launches the batch copy of files into the project folder and
	// returns the running task for the progress bridge to subscribe to.
	StartCopy(ctx context.Context, files []FileEntry, projectFolder string) (progress.Source, error)

	// DuplicateTemplate copies the editing template into destinationFolder
	// under the project title.
	DuplicateTemplate(ctx context.Context, destinationFolder, title string) error

	// PromptConfirmation offers to open the finished project folder.
	// Failures are non-critical.
	PromptConfirmation(ctx context.Context, message, title, destinationPath string) error
}

var _ progress.Source = (*copier.Task)(nil)
