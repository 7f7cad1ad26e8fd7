package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"baker/internal/gateway"
	"baker/internal/history"
	"baker/internal/logging"
	"baker/internal/prompt"
	"baker/internal/workflow"
)

const lockFileName = ".baker.lock"

func newBuildCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		titleFlag   string
		destFlag    string
		cameraFlags []string
		camerasFlag int
		userFlag    string
		prettyTitle bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run the full project build workflow",
		Long: "Validates the destination, creates the folder structure, saves the " +
			"breadcrumbs manifest, copies footage into per-camera folders, and " +
			"duplicates the editing template.",
		Example: `  baker build --title "Spring Concert" --camera 1:/media/sd1/clip1.mov --camera 2:/media/sd2/clip2.mov`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}

			title := strings.TrimSpace(titleFlag)
			if title == "" {
				return fmt.Errorf("--title is required")
			}
			if prettyTitle {
				title = cases.Title(language.Und).String(title)
			}

			files, maxCamera, err := parseCameraSpecs(cameraFlags)
			if err != nil {
				return err
			}
			cameras := camerasFlag
			if cameras == 0 {
				cameras = maxCamera
			}

			dest := strings.TrimSpace(destFlag)
			if dest == "" {
				dest = cfg.Paths.DestinationRoot
			}
			username := strings.TrimSpace(userFlag)
			if username == "" {
				username = cfg.Project.Username
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			lock := flock.New(filepath.Join(dest, lockFileName))
			lockCtx, cancelLock := context.WithTimeout(runCtx,
				time.Duration(cfg.Workflow.LockTimeoutSeconds)*time.Second)
			defer cancelLock()
			locked, err := lock.TryLockContext(lockCtx, 250*time.Millisecond)
			if err != nil || !locked {
				return fmt.Errorf("destination %s is locked by another build", dest)
			}
			defer func() { _ = lock.Unlock() }()

			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer func() { _ = store.Close() }()

			// The prompt is driven from this command after the machine
			// settles, so the gateway's own prompt stays disabled here.
			gwCfg := *cfg
			gwCfg.Workflow.PromptOnSuccess = false

			bar := progressbar.NewOptions(100,
				progressbar.OptionSetDescription("Copying footage"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetPredictTime(false),
				progressbar.OptionClearOnFinish(),
			)
			terminal := make(chan workflow.Transition, 1)
			observer := func(tr workflow.Transition) {
				switch tr.Event {
				case workflow.EventCopyProgress:
					_ = bar.Set(tr.Context.CopyProgress)
				case workflow.EventCopyComplete:
					_ = bar.Finish()
				}
				if tr.To.Terminal() {
					select {
					case terminal <- tr:
					default:
					}
				}
			}

			machine := workflow.New(gateway.New(&gwCfg, logger, nil), logger,
				workflow.WithObserver(store.Observer(logger)),
				workflow.WithObserver(observer),
			)
			defer machine.Close()

			machine.Handle(workflow.UpdateConfig(workflow.ConfigPatch{
				Title:           &title,
				CameraCount:     &cameras,
				Files:           files,
				DestinationRoot: &dest,
				Username:        &username,
			}))
			machine.Handle(workflow.Start())

			var tr workflow.Transition
			select {
			case <-runCtx.Done():
				return runCtx.Err()
			case tr = <-terminal:
			}

			if tr.To == workflow.StateError {
				return fmt.Errorf("build failed: %s", tr.Context.LastError)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project %q created at %s (%d files across %d cameras)\n",
				title, tr.Context.ProjectFolder, len(files), cameras)

			if cfg.Workflow.PromptOnSuccess {
				prompter := prompt.New(logger)
				if err := prompter.Completion(runCtx, "Project Created",
					"Open the project folder?", tr.Context.ProjectFolder); err != nil {
					logger.Warn("completion prompt failed", logging.Error(err))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&titleFlag, "title", "t", "", "Project title (required)")
	cmd.Flags().StringVarP(&destFlag, "dest", "d", "", "Destination root (defaults to configured destination)")
	cmd.Flags().StringArrayVar(&cameraFlags, "camera", nil, "Source file as CAMERA:PATH, repeatable")
	cmd.Flags().IntVar(&camerasFlag, "cameras", 0, "Number of cameras (defaults to highest camera referenced)")
	cmd.Flags().StringVarP(&userFlag, "username", "u", "", "Recorded as the manifest creator")
	cmd.Flags().BoolVar(&prettyTitle, "pretty-title", false, "Title-case the project title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// parseCameraSpecs turns repeated CAMERA:PATH flags into file entries and
// reports the highest camera number referenced.
func parseCameraSpecs(specs []string) ([]workflow.FileEntry, int, error) {
	if len(specs) == 0 {
		return nil, 0, fmt.Errorf("at least one --camera CAMERA:PATH is required")
	}
	files := make([]workflow.FileEntry, 0, len(specs))
	maxCamera := 0
	for _, spec := range specs {
		camera, path, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, 0, fmt.Errorf("invalid --camera %q, expected CAMERA:PATH", spec)
		}
		num, err := strconv.Atoi(strings.TrimSpace(camera))
		if err != nil || num < 1 {
			return nil, 0, fmt.Errorf("invalid camera number in %q", spec)
		}
		path = strings.TrimSpace(path)
		if path == "" {
			return nil, 0, fmt.Errorf("missing path in --camera %q", spec)
		}
		if num > maxCamera {
			maxCamera = num
		}
		files = append(files, workflow.FileEntry{
			Camera:      num,
			SourcePath:  path,
			DisplayName: filepath.Base(path),
		})
	}
	return files, maxCamera, nil
}
