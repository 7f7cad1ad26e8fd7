package workflow_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"baker/internal/copier"
	"baker/internal/manifest"
	"baker/internal/progress"
	"baker/internal/workflow"
)

// stubGateway hangs on every operation until the machine is closed, so
// tests can drive the machine by injecting events manually. Individual
// hooks override that behavior per test.
type stubGateway struct {
	validateHook func(workflow.Context) (string, error)
	foldersHook  func() error
	manifestHook func(string, manifest.Manifest) error
	copyHook     func() (progress.Source, error)
	templateHook func(string, string) error
	promptHook   func(string) error

	templateCalls atomic.Int32
	promptCalls   atomic.Int32

	mu        sync.Mutex
	manifests []manifest.Manifest
}

func (g *stubGateway) ValidateDestination(ctx context.Context, snapshot workflow.Context) (string, error) {
	if g.validateHook != nil {
		return g.validateHook(snapshot)
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func (g *stubGateway) CreateProjectFolders(ctx context.Context, root, title string, cameras int) (string, error) {
	if g.foldersHook != nil {
		return root + "/" + title, g.foldersHook()
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func (g *stubGateway) WriteManifest(ctx context.Context, folder string, m manifest.Manifest) error {
	if g.manifestHook != nil {
		g.mu.Lock()
		g.manifests = append(g.manifests, m)
		g.mu.Unlock()
		return g.manifestHook(folder, m)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (g *stubGateway) StartCopy(ctx context.Context, files []workflow.FileEntry, folder string) (progress.Source, error) {
	if g.copyHook != nil {
		return g.copyHook()
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (g *stubGateway) DuplicateTemplate(ctx context.Context, folder, title string) error {
	g.templateCalls.Add(1)
	if g.templateHook != nil {
		return g.templateHook(folder, title)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (g *stubGateway) PromptConfirmation(ctx context.Context, message, title, destination string) error {
	g.promptCalls.Add(1)
	if g.promptHook != nil {
		return g.promptHook(destination)
	}
	return nil
}

// completedSource is a copy task that already finished.
type completedSource struct {
	updates chan copier.Update
	done    chan struct{}
	err     error
}

func newCompletedSource(err error, percents ...int) *completedSource {
	s := &completedSource{
		updates: make(chan copier.Update, len(percents)),
		done:    make(chan struct{}),
		err:     err,
	}
	for _, pct := range percents {
		s.updates <- copier.Update{Percent: pct}
	}
	close(s.updates)
	close(s.done)
	return s
}

func (s *completedSource) Updates() <-chan copier.Update { return s.updates }
func (s *completedSource) Done() <-chan struct{}         { return s.done }
func (s *completedSource) Err() error                    { return s.err }

func newTestMachine(t *testing.T, gw workflow.CommandGateway, opts ...workflow.Option) *workflow.Machine {
	t.Helper()
	m := workflow.New(gw, nil, opts...)
	t.Cleanup(m.Close)
	return m
}

func configPatch() workflow.ConfigPatch {
	title := "Shoot1"
	cameras := 1
	root := "/dest"
	user := "editor"
	return workflow.ConfigPatch{
		Title:           &title,
		CameraCount:     &cameras,
		Files:           []workflow.FileEntry{{Camera: 1, SourcePath: "/a.mov", DisplayName: "a.mov"}},
		DestinationRoot: &root,
		Username:        &user,
	}
}

func waitForState(t *testing.T, m *workflow.Machine, want workflow.State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("machine stuck in %s, want %s", m.State(), want)
}

func TestInitialStateIsIdleWithEmptyContext(t *testing.T) {
	m := newTestMachine(t, &stubGateway{})
	if m.State() != workflow.StateIdle {
		t.Fatalf("initial state = %s", m.State())
	}
	snap := m.Snapshot()
	if len(snap.Files) != 0 || snap.CopyProgress != 0 || snap.ProjectFolder != "" || snap.LastError != "" {
		t.Fatalf("initial context not empty: %+v", snap)
	}
	if m.RunID() != "" {
		t.Fatal("expected no run before start")
	}
}

func TestScenarioFullPipelineByEvents(t *testing.T) {
	m := newTestMachine(t, &stubGateway{})
	m.Handle(workflow.UpdateConfig(configPatch()))

	m.Handle(workflow.Start())
	if m.State() != workflow.StateValidating {
		t.Fatalf("after START: %s", m.State())
	}
	runID := m.RunID()
	if runID == "" {
		t.Fatal("expected run id after START")
	}

	m.Handle(workflow.ValidationSuccess("/dest/Shoot1"))
	if m.State() != workflow.StateCreatingFolders {
		t.Fatalf("after validation: %s", m.State())
	}
	if got := m.Snapshot().ProjectFolder; got != "/dest/Shoot1" {
		t.Fatalf("project folder = %q", got)
	}

	m.Handle(workflow.FoldersCreated())
	if m.State() != workflow.StateSavingManifest {
		t.Fatalf("after folders: %s", m.State())
	}

	m.Handle(workflow.ManifestSaved())
	if m.State() != workflow.StateCopyingFiles {
		t.Fatalf("after manifest: %s", m.State())
	}
	if got := m.Snapshot().CopyProgress; got != 0 {
		t.Fatalf("copy progress at entry = %d, want 0", got)
	}

	m.Handle(workflow.CopyProgress(55))
	if m.State() != workflow.StateCopyingFiles {
		t.Fatalf("progress tick moved state: %s", m.State())
	}
	if got := m.Snapshot().CopyProgress; got != 55 {
		t.Fatalf("copy progress = %d, want 55", got)
	}

	m.Handle(workflow.CopyComplete())
	if m.State() != workflow.StateCreatingTemplate {
		t.Fatalf("after copy: %s", m.State())
	}

	m.Handle(workflow.TemplateComplete())
	if m.State() != workflow.StateShowingSuccess {
		t.Fatalf("after template: %s", m.State())
	}
	if m.RunID() != runID {
		t.Fatal("run id changed mid-run")
	}
}

func TestScenarioCopyErrorPreservesProgress(t *testing.T) {
	m := newTestMachine(t, &stubGateway{})
	m.Handle(workflow.UpdateConfig(configPatch()))
	m.Handle(workflow.Start())
	m.Handle(workflow.ValidationSuccess("/dest/Shoot1"))
	m.Handle(workflow.FoldersCreated())
	m.Handle(workflow.ManifestSaved())
	m.Handle(workflow.CopyProgress(40))

	m.Handle(workflow.CopyError("disk full"))
	if m.State() != workflow.StateError {
		t.Fatalf("after copy error: %s", m.State())
	}
	snap := m.Snapshot()
	if snap.LastError != "disk full" {
		t.Fatalf("last error = %q", snap.LastError)
	}
	if snap.CopyProgress != 40 {
		t.Fatalf("copy progress reset early: %d", snap.CopyProgress)
	}
}

func TestScenarioRestartFromSuccessWithoutReset(t *testing.T) {
	m := newTestMachine(t, &stubGateway{})
	m.Handle(workflow.UpdateConfig(configPatch()))
	m.Handle(workflow.Start())
	m.Handle(workflow.ValidationSuccess("/dest/Shoot1"))
	m.Handle(workflow.FoldersCreated())
	m.Handle(workflow.ManifestSaved())
	m.Handle(workflow.CopyProgress(80))
	m.Handle(workflow.CopyComplete())
	m.Handle(workflow.TemplateComplete())
	firstRun := m.RunID()

	m.Handle(workflow.ValidationSuccess("/dest/Shoot2"))
	if m.State() != workflow.StateCreatingFolders {
		t.Fatalf("after re-entry: %s", m.State())
	}
	snap := m.Snapshot()
	if snap.ProjectFolder != "/dest/Shoot2" {
		t.Fatalf("project folder = %q", snap.ProjectFolder)
	}
	if snap.CopyProgress != 0 || snap.LastError != "" {
		t.Fatalf("run state not cleared: %+v", snap)
	}
	if m.RunID() == firstRun || m.RunID() == "" {
		t.Fatal("expected a fresh run id on re-entry")
	}
}

func TestResetClearsRunStateAndPreservesConfig(t *testing.T) {
	m := newTestMachine(t, &stubGateway{})
	m.Handle(workflow.UpdateConfig(configPatch()))
	m.Handle(workflow.Start())
	m.Handle(workflow.ValidationError("unwritable"))
	if m.State() != workflow.StateError {
		t.Fatalf("after validation error: %s", m.State())
	}

	m.Handle(workflow.Reset())
	if m.State() != workflow.StateIdle {
		t.Fatalf("after reset: %s", m.State())
	}
	snap := m.Snapshot()
	if snap.LastError != "" || snap.CopyProgress != 0 || snap.ProjectFolder != "" {
		t.Fatalf("run state survived reset: %+v", snap)
	}
	if snap.Title != "Shoot1" || snap.CameraCount != 1 || snap.Username != "editor" || len(snap.Files) != 1 {
		t.Fatalf("configuration lost on reset: %+v", snap)
	}
	if m.RunID() != "" {
		t.Fatal("run id should clear on reset")
	}
}

func TestUnmatchedEventsAreNoOpsInEveryState(t *testing.T) {
	outOfTable := map[workflow.State][]workflow.Event{
		workflow.StateIdle:             {workflow.CopyProgress(10), workflow.CopyComplete(), workflow.Reset(), workflow.TemplateComplete(), workflow.FoldersCreated()},
		workflow.StateValidating:       {workflow.Start(), workflow.FoldersCreated(), workflow.CopyProgress(10), workflow.Reset(), workflow.UpdateConfig(configPatch())},
		workflow.StateCreatingFolders:  {workflow.Start(), workflow.ValidationSuccess("/x"), workflow.CopyComplete(), workflow.Reset()},
		workflow.StateSavingManifest:   {workflow.Start(), workflow.FoldersCreated(), workflow.CopyProgress(10), workflow.Reset()},
		workflow.StateCopyingFiles:     {workflow.Start(), workflow.ManifestSaved(), workflow.TemplateComplete(), workflow.Reset()},
		workflow.StateCreatingTemplate: {workflow.Start(), workflow.CopyProgress(99), workflow.CopyComplete(), workflow.Reset()},
		workflow.StateShowingSuccess:   {workflow.Start(), workflow.CopyProgress(10), workflow.TemplateComplete()},
		workflow.StateError:            {workflow.Start(), workflow.ValidationSuccess("/x"), workflow.CopyProgress(10), workflow.TemplateComplete()},
	}

	drive := map[workflow.State][]workflow.Event{
		workflow.StateIdle:             {},
		workflow.StateValidating:       {workflow.Start()},
		workflow.StateCreatingFolders:  {workflow.Start(), workflow.ValidationSuccess("/dest/Shoot1")},
		workflow.StateSavingManifest:   {workflow.Start(), workflow.ValidationSuccess("/dest/Shoot1"), workflow.FoldersCreated()},
		workflow.StateCopyingFiles:     {workflow.Start(), workflow.ValidationSuccess("/dest/Shoot1"), workflow.FoldersCreated(), workflow.ManifestSaved()},
		workflow.StateCreatingTemplate: {workflow.Start(), workflow.ValidationSuccess("/dest/Shoot1"), workflow.FoldersCreated(), workflow.ManifestSaved(), workflow.CopyComplete()},
		workflow.StateShowingSuccess:   {workflow.Start(), workflow.ValidationSuccess("/dest/Shoot1"), workflow.FoldersCreated(), workflow.ManifestSaved(), workflow.CopyComplete(), workflow.TemplateComplete()},
		workflow.StateError:            {workflow.Start(), workflow.ValidationError("boom")},
	}

	for _, state := range workflow.States() {
		events, ok := outOfTable[state]
		if !ok {
			t.Fatalf("missing out-of-table events for %s", state)
		}
		t.Run(string(state), func(t *testing.T) {
			m := newTestMachine(t, &stubGateway{})
			m.Handle(workflow.UpdateConfig(configPatch()))
			for _, ev := range drive[state] {
				m.Handle(ev)
			}
			if m.State() != state {
				t.Fatalf("drive failed: in %s, want %s", m.State(), state)
			}

			before := m.Snapshot()
			for _, ev := range events {
				m.Handle(ev)
				if m.State() != state {
					t.Fatalf("event %s moved state to %s", ev.Kind, m.State())
				}
			}
			after := m.Snapshot()
			if before.CopyProgress != after.CopyProgress || before.LastError != after.LastError || before.ProjectFolder != after.ProjectFolder {
				t.Fatalf("context changed by unmatched events:\n before %+v\n after  %+v", before, after)
			}
		})
	}
}

func TestCopyProgressIgnoredOutsideCopyingFiles(t *testing.T) {
	m := newTestMachine(t, &stubGateway{})
	m.Handle(workflow.UpdateConfig(configPatch()))
	m.Handle(workflow.Start())
	m.Handle(workflow.ValidationSuccess("/dest/Shoot1"))

	m.Handle(workflow.CopyProgress(70))
	if got := m.Snapshot().CopyProgress; got != 0 {
		t.Fatalf("progress mutated outside copying_files: %d", got)
	}
}

func TestCopyProgressClampedToRange(t *testing.T) {
	m := newTestMachine(t, &stubGateway{})
	m.Handle(workflow.UpdateConfig(configPatch()))
	m.Handle(workflow.Start())
	m.Handle(workflow.ValidationSuccess("/dest/Shoot1"))
	m.Handle(workflow.FoldersCreated())
	m.Handle(workflow.ManifestSaved())

	m.Handle(workflow.CopyProgress(250))
	if got := m.Snapshot().CopyProgress; got != 100 {
		t.Fatalf("clamp high failed: %d", got)
	}
	m.Handle(workflow.CopyProgress(-5))
	if got := m.Snapshot().CopyProgress; got != 0 {
		t.Fatalf("clamp low failed: %d", got)
	}
	// Store-as-given: a lower value from the engine is recorded.
	m.Handle(workflow.CopyProgress(30))
	m.Handle(workflow.CopyProgress(20))
	if got := m.Snapshot().CopyProgress; got != 20 {
		t.Fatalf("store-as-given violated: %d", got)
	}
}

func TestStaleRunEventsAreDropped(t *testing.T) {
	m := newTestMachine(t, &stubGateway{})
	m.Handle(workflow.UpdateConfig(configPatch()))
	m.Handle(workflow.Start())
	staleRun := m.RunID()
	m.Handle(workflow.ValidationSuccess("/dest/Shoot1"))
	m.Handle(workflow.FoldersCreated())
	m.Handle(workflow.ManifestSaved())

	m.Handle(workflow.CopyError("abandoned"))
	m.Handle(workflow.Reset())
	m.Handle(workflow.Start())

	m.Handle(workflow.CopyComplete().WithRun(staleRun))
	if m.State() != workflow.StateValidating {
		t.Fatalf("stale completion mutated machine: %s", m.State())
	}
}

func TestTemplateDuplicationInvokedExactlyOncePerRun(t *testing.T) {
	gw := &stubGateway{}
	m := newTestMachine(t, gw)
	m.Handle(workflow.UpdateConfig(configPatch()))
	m.Handle(workflow.Start())
	m.Handle(workflow.ValidationSuccess("/dest/Shoot1"))
	m.Handle(workflow.FoldersCreated())
	m.Handle(workflow.ManifestSaved())
	m.Handle(workflow.CopyComplete())

	// Duplicate copy completions while already in creating_template must not
	// re-trigger the effect.
	m.Handle(workflow.CopyComplete())
	m.Handle(workflow.CopyComplete())

	deadline := time.Now().Add(2 * time.Second)
	for gw.templateCalls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	if got := gw.templateCalls.Load(); got != 1 {
		t.Fatalf("template duplicated %d times, want 1", got)
	}
	if got := m.Snapshot().ProjectFolder; got != "/dest/Shoot1" {
		t.Fatalf("project folder = %q", got)
	}
}

func TestAutoPipelineRunsToSuccess(t *testing.T) {
	gw := &stubGateway{
		validateHook: func(snapshot workflow.Context) (string, error) {
			return snapshot.DestinationRoot + "/" + snapshot.Title, nil
		},
		foldersHook:  func() error { return nil },
		manifestHook: func(string, manifest.Manifest) error { return nil },
		copyHook: func() (progress.Source, error) {
			return newCompletedSource(nil, 25, 50, 100), nil
		},
		templateHook: func(string, string) error { return nil },
	}
	m := newTestMachine(t, gw)
	m.Handle(workflow.UpdateConfig(configPatch()))
	m.Handle(workflow.Start())

	waitForState(t, m, workflow.StateShowingSuccess)

	if got := gw.templateCalls.Load(); got != 1 {
		t.Fatalf("template calls = %d, want 1", got)
	}
	if got := gw.promptCalls.Load(); got != 1 {
		t.Fatalf("prompt calls = %d, want 1", got)
	}
	snap := m.Snapshot()
	if snap.ProjectFolder != "/dest/Shoot1" {
		t.Fatalf("project folder = %q", snap.ProjectFolder)
	}
	if snap.CopyProgress != 100 {
		t.Fatalf("final progress = %d", snap.CopyProgress)
	}

	gw.mu.Lock()
	defer gw.mu.Unlock()
	if len(gw.manifests) != 1 {
		t.Fatalf("manifest writes = %d, want 1", len(gw.manifests))
	}
	record := gw.manifests[0]
	if record.ProjectTitle != "Shoot1" || record.NumberOfCameras != 1 || record.CreatedBy != "editor" {
		t.Fatalf("unexpected manifest: %+v", record)
	}
	if len(record.Files) != 1 || record.Files[0].Camera != 1 || record.Files[0].Path != "/a.mov" {
		t.Fatalf("unexpected manifest files: %+v", record.Files)
	}
}

func TestTemplateFailureRoutesToError(t *testing.T) {
	gw := &stubGateway{
		templateHook: func(string, string) error { return errors.New("template source missing") },
	}
	m := newTestMachine(t, gw)
	m.Handle(workflow.UpdateConfig(configPatch()))
	m.Handle(workflow.Start())
	m.Handle(workflow.ValidationSuccess("/dest/Shoot1"))
	m.Handle(workflow.FoldersCreated())
	m.Handle(workflow.ManifestSaved())
	m.Handle(workflow.CopyComplete())

	waitForState(t, m, workflow.StateError)
	if got := m.Snapshot().LastError; got != "template source missing" {
		t.Fatalf("last error = %q", got)
	}
}

func TestPromptFailureIsSwallowed(t *testing.T) {
	gw := &stubGateway{
		promptHook: func(string) error { return errors.New("no display") },
	}
	m := newTestMachine(t, gw)
	m.Handle(workflow.UpdateConfig(configPatch()))
	m.Handle(workflow.Start())
	m.Handle(workflow.ValidationSuccess("/dest/Shoot1"))
	m.Handle(workflow.FoldersCreated())
	m.Handle(workflow.ManifestSaved())
	m.Handle(workflow.CopyComplete())
	m.Handle(workflow.TemplateComplete())

	deadline := time.Now().Add(2 * time.Second)
	for gw.promptCalls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	if m.State() != workflow.StateShowingSuccess {
		t.Fatalf("prompt failure disturbed workflow: %s", m.State())
	}
	if got := m.Snapshot().LastError; got != "" {
		t.Fatalf("prompt failure surfaced as workflow error: %q", got)
	}
}

func TestObserversSeeTransitionsInOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []workflow.State
	observer := func(tr workflow.Transition) {
		mu.Lock()
		seen = append(seen, tr.To)
		mu.Unlock()
	}

	m := newTestMachine(t, &stubGateway{}, workflow.WithObserver(observer))
	m.Handle(workflow.UpdateConfig(configPatch()))
	m.Handle(workflow.Start())
	m.Handle(workflow.ValidationSuccess("/dest/Shoot1"))
	m.Handle(workflow.FoldersCreated())

	mu.Lock()
	defer mu.Unlock()
	want := []workflow.State{
		workflow.StateIdle,
		workflow.StateValidating,
		workflow.StateCreatingFolders,
		workflow.StateSavingManifest,
	}
	if len(seen) != len(want) {
		t.Fatalf("observer saw %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("observer order %v, want %v", seen, want)
		}
	}
}
