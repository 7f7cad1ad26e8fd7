package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"baker/internal/logging"
	"baker/internal/manifest"
	"baker/internal/progress"
	"baker/internal/services"
)

// enterState fires the external operation keyed to the entered state, at
// most once per run regardless of how often the state is re-evaluated.
// Callers hold the machine lock.
func (m *Machine) enterState(state State) {
	var launch func(ctx context.Context, runID string, snapshot Context)

	switch state {
	case StateValidating:
		launch = m.effectValidate
	case StateCreatingFolders:
		launch = m.effectCreateFolders
	case StateSavingManifest:
		launch = m.effectWriteManifest
	case StateCopyingFiles:
		launch = m.effectStartCopy
	case StateCreatingTemplate:
		launch = m.effectDuplicateTemplate
	case StateShowingSuccess:
		launch = m.effectPromptCompletion
	default:
		return
	}

	key := effectKey{runID: m.runID, state: state}
	if _, done := m.fired[key]; done {
		return
	}
	m.fired[key] = struct{}{}

	runID := m.runID
	snapshot := m.data.clone()
	ctx := services.WithRunID(m.ctx, runID)
	ctx = services.WithStep(ctx, string(state))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		launch(ctx, runID, snapshot)
	}()
}

func (m *Machine) effectValidate(ctx context.Context, runID string, snapshot Context) {
	folder, err := m.gw.ValidateDestination(ctx, snapshot)
	if err != nil {
		m.Handle(ValidationError(services.Message(err)).WithRun(runID))
		return
	}
	m.Handle(ValidationSuccess(folder).WithRun(runID))
}

func (m *Machine) effectCreateFolders(ctx context.Context, runID string, snapshot Context) {
	if _, err := m.gw.CreateProjectFolders(ctx, snapshot.DestinationRoot, snapshot.Title, snapshot.CameraCount); err != nil {
		m.Handle(FoldersError(services.Message(err)).WithRun(runID))
		return
	}
	m.Handle(FoldersCreated().WithRun(runID))
}

func (m *Machine) effectWriteManifest(ctx context.Context, runID string, snapshot Context) {
	record := buildManifest(snapshot)
	if err := m.gw.WriteManifest(ctx, snapshot.ProjectFolder, record); err != nil {
		m.Handle(ManifestError(services.Message(err)).WithRun(runID))
		return
	}
	m.Handle(ManifestSaved().WithRun(runID))
}

func (m *Machine) effectStartCopy(ctx context.Context, runID string, snapshot Context) {
	task, err := m.gw.StartCopy(ctx, snapshot.Files, snapshot.ProjectFolder)
	if err != nil {
		m.Handle(CopyError(services.Message(err)).WithRun(runID))
		return
	}

	bridge := progress.NewBridge(task, progress.Events{
		OnProgress: func(pct int) {
			m.Handle(CopyProgress(pct).WithRun(runID))
		},
		OnComplete: func() {
			m.Handle(CopyComplete().WithRun(runID))
		},
		OnError: func(msg string) {
			m.Handle(CopyError(msg).WithRun(runID))
		},
	}, m.logger)

	m.mu.Lock()
	if m.closed || m.runID != runID {
		// The run moved on while the copy was being launched.
		m.mu.Unlock()
		bridge.Close()
		return
	}
	m.bridge = bridge
	m.mu.Unlock()
}

func (m *Machine) effectDuplicateTemplate(ctx context.Context, runID string, snapshot Context) {
	if strings.TrimSpace(snapshot.ProjectFolder) == "" {
		m.Handle(TemplateError("project folder not set").WithRun(runID))
		return
	}
	destination := filepath.Join(snapshot.ProjectFolder, "Projects")
	if err := m.gw.DuplicateTemplate(ctx, destination, snapshot.Title); err != nil {
		m.Handle(TemplateError(services.Message(err)).WithRun(runID))
		return
	}
	m.Handle(TemplateComplete().WithRun(runID))
}

func (m *Machine) effectPromptCompletion(ctx context.Context, runID string, snapshot Context) {
	if strings.TrimSpace(snapshot.ProjectFolder) == "" {
		return
	}
	message := fmt.Sprintf("Project %q is ready. Open the project folder?", snapshot.Title)
	if err := m.gw.PromptConfirmation(ctx, message, "Project Created", snapshot.ProjectFolder); err != nil {
		// Post-completion convenience only; never surfaced as workflow state.
		logging.WithContext(ctx, m.logger).Warn("completion prompt failed", logging.Error(err))
	}
}

func buildManifest(snapshot Context) manifest.Manifest {
	entries := make([]manifest.FileEntry, 0, len(snapshot.Files))
	for _, file := range snapshot.Files {
		name := strings.TrimSpace(file.DisplayName)
		if name == "" {
			name = filepath.Base(file.SourcePath)
		}
		entries = append(entries, manifest.FileEntry{
			Camera: file.Camera,
			Name:   name,
			Path:   file.SourcePath,
		})
	}
	return manifest.New(snapshot.Title, snapshot.CameraCount, entries, snapshot.DestinationRoot, snapshot.Username)
}
