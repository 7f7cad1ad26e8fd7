package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"baker/internal/scanner"
)

func newScanCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		rootFlag      string
		depthFlag     int
		refreshFlag   bool
		hiddenFlag    bool
		scannedByFlag string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Inventory project folders and their breadcrumbs manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}

			root := strings.TrimSpace(rootFlag)
			if root == "" {
				root = cfg.Paths.DestinationRoot
			}
			depth := depthFlag
			if depth < 0 {
				depth = cfg.Scanner.MaxDepth
			}
			scannedBy := strings.TrimSpace(scannedByFlag)
			if scannedBy == "" {
				scannedBy = cfg.Project.Username
			}

			result, err := scanner.Scan(cmd.Context(), root, scanner.Options{
				MaxDepth:      depth,
				IncludeHidden: hiddenFlag || cfg.Scanner.IncludeHidden,
				Refresh:       refreshFlag,
				ScannedBy:     scannedBy,
			}, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(result.Projects) == 0 {
				fmt.Fprintf(out, "No project folders found under %s\n", root)
				return nil
			}

			rows := make([][]string, 0, len(result.Projects))
			for _, project := range result.Projects {
				title := ""
				cameras := ""
				if project.Manifest != nil {
					title = project.Manifest.ProjectTitle
					cameras = fmt.Sprintf("%d", project.Manifest.NumberOfCameras)
				}
				status := string(project.Status)
				if project.Refreshed {
					status += " (refreshed)"
				}
				rows = append(rows, []string{
					project.Path,
					title,
					status,
					humanize.IBytes(project.SizeBytes),
					cameras,
					project.Detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Folder", "Title", "Status", "Size", "Cameras", "Detail"},
				rows, 4, 5))

			for _, msg := range result.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", msg)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rootFlag, "root", "", "Folder to scan (defaults to configured destination)")
	cmd.Flags().IntVar(&depthFlag, "depth", -1, "How deep to look for projects (defaults to configured depth)")
	cmd.Flags().BoolVar(&refreshFlag, "refresh", false, "Rewrite stale manifests with measured sizes")
	cmd.Flags().BoolVar(&hiddenFlag, "hidden", false, "Also scan hidden folders")
	cmd.Flags().StringVar(&scannedByFlag, "scanned-by", "", "Recorded in refreshed manifests")
	return cmd
}
