package gateway_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"baker/internal/config"
	"baker/internal/gateway"
	"baker/internal/manifest"
	"baker/internal/services"
	"baker/internal/testsupport"
	"baker/internal/workflow"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t, testsupport.WithExtraFolders("Audio", "Graphics"))
}

func writeSource(t *testing.T, name string, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	testsupport.WriteFile(t, path, size)
	return path
}

func TestValidateDestinationReturnsProjectFolder(t *testing.T) {
	cfg := testConfig(t)
	gw := gateway.New(cfg, nil, nil)

	src := writeSource(t, "a.mov", 2048)
	folder, err := gw.ValidateDestination(context.Background(), workflow.Context{
		Title:       "Shoot1",
		CameraCount: 1,
		Files:       []workflow.FileEntry{{Camera: 1, SourcePath: src}},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if want := filepath.Join(cfg.Paths.DestinationRoot, "Shoot1"); folder != want {
		t.Fatalf("folder = %q, want %q", folder, want)
	}
}

func TestValidateDestinationRejectsExistingProject(t *testing.T) {
	cfg := testConfig(t)
	gw := gateway.New(cfg, nil, nil)
	if err := os.Mkdir(filepath.Join(cfg.Paths.DestinationRoot, "Shoot1"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	src := writeSource(t, "a.mov", 2048)
	_, err := gw.ValidateDestination(context.Background(), workflow.Context{
		Title:       "Shoot1",
		CameraCount: 1,
		Files:       []workflow.FileEntry{{Camera: 1, SourcePath: src}},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGatewayLogsCarryRunAndStepFields(t *testing.T) {
	cfg := testConfig(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	gw := gateway.New(cfg, logger, nil)

	ctx := services.WithRunID(context.Background(), "run-42")
	ctx = services.WithStep(ctx, "creating_folders")
	if _, err := gw.CreateProjectFolders(ctx, cfg.Paths.DestinationRoot, "Shoot1", 1); err != nil {
		t.Fatalf("create folders: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "run_id=run-42") || !strings.Contains(out, "step=creating_folders") {
		t.Fatalf("missing run fields in log output: %q", out)
	}
}

func TestCreateProjectFoldersLayout(t *testing.T) {
	cfg := testConfig(t)
	gw := gateway.New(cfg, nil, nil)

	folder, err := gw.CreateProjectFolders(context.Background(), cfg.Paths.DestinationRoot, "Shoot1", 3)
	if err != nil {
		t.Fatalf("create folders: %v", err)
	}
	want := []string{
		filepath.Join(folder, "Footage", "Camera 1"),
		filepath.Join(folder, "Footage", "Camera 2"),
		filepath.Join(folder, "Footage", "Camera 3"),
		filepath.Join(folder, "Projects"),
		filepath.Join(folder, "Audio"),
		filepath.Join(folder, "Graphics"),
	}
	for _, dir := range want {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("missing %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}

	// A second call over the same tree succeeds.
	if _, err := gw.CreateProjectFolders(context.Background(), cfg.Paths.DestinationRoot, "Shoot1", 3); err != nil {
		t.Fatalf("repeat create folders: %v", err)
	}
}

func TestWriteManifestPersistsBreadcrumbs(t *testing.T) {
	cfg := testConfig(t)
	gw := gateway.New(cfg, nil, nil)
	folder := t.TempDir()

	m := manifest.New("Shoot1", 1, []manifest.FileEntry{{Camera: 1, Name: "a.mov", Path: "/src/a.mov"}}, folder, "editor")
	if err := gw.WriteManifest(context.Background(), folder, m); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	got, err := manifest.Read(folder)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if got == nil || got.ProjectTitle != "Shoot1" {
		t.Fatalf("manifest round-trip failed: %+v", got)
	}
}

func TestStartCopyPlacesFilesUnderCameraFolders(t *testing.T) {
	cfg := testConfig(t)
	gw := gateway.New(cfg, nil, nil)

	folder, err := gw.CreateProjectFolders(context.Background(), cfg.Paths.DestinationRoot, "Shoot1", 2)
	if err != nil {
		t.Fatalf("create folders: %v", err)
	}
	srcA := writeSource(t, "a.mov", 48*1024)
	srcB := writeSource(t, "b.mov", 16*1024)

	task, err := gw.StartCopy(context.Background(), []workflow.FileEntry{
		{Camera: 1, SourcePath: srcA, DisplayName: "a.mov"},
		{Camera: 2, SourcePath: srcB, DisplayName: "b.mov"},
	}, folder)
	if err != nil {
		t.Fatalf("start copy: %v", err)
	}
	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("copy did not finish")
	}
	if err := task.Err(); err != nil {
		t.Fatalf("copy failed: %v", err)
	}

	for path, src := range map[string]string{
		filepath.Join(folder, "Footage", "Camera 1", "a.mov"): srcA,
		filepath.Join(folder, "Footage", "Camera 2", "b.mov"): srcB,
	} {
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		want, err := os.ReadFile(src)
		if err != nil {
			t.Fatalf("read %s: %v", src, err)
		}
		if string(got) != string(want) {
			t.Fatalf("content mismatch for %s", path)
		}
	}
}

func TestStartCopyRejectsEmptyBatch(t *testing.T) {
	cfg := testConfig(t)
	gw := gateway.New(cfg, nil, nil)
	if _, err := gw.StartCopy(context.Background(), nil, t.TempDir()); !errors.Is(err, services.ErrCopy) {
		t.Fatalf("expected copy error, got %v", err)
	}
}

func TestDuplicateTemplateIntoProjects(t *testing.T) {
	cfg := testConfig(t)
	gw := gateway.New(cfg, nil, nil)

	folder, err := gw.CreateProjectFolders(context.Background(), cfg.Paths.DestinationRoot, "Shoot1", 1)
	if err != nil {
		t.Fatalf("create folders: %v", err)
	}
	projects := filepath.Join(folder, "Projects")
	if err := gw.DuplicateTemplate(context.Background(), projects, "Shoot1"); err != nil {
		t.Fatalf("duplicate template: %v", err)
	}
	if _, err := os.Stat(filepath.Join(projects, "Shoot1.prproj")); err != nil {
		t.Fatalf("template missing: %v", err)
	}
}

func TestPromptConfirmationSkippedWhenDisabled(t *testing.T) {
	cfg := testConfig(t)
	gw := gateway.New(cfg, nil, nil)
	// PromptOnSuccess is false in the test config; no prompter interaction
	// should be required.
	if err := gw.PromptConfirmation(context.Background(), "Open?", "Done", t.TempDir()); err != nil {
		t.Fatalf("prompt: %v", err)
	}
}
