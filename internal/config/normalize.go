package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeProject()
	c.normalizeCopy()
	c.normalizeScanner()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if override := strings.TrimSpace(os.Getenv("BAKER_TEMPLATE_PATH")); override != "" {
		c.Paths.TemplatePath = override
	}
	if c.Paths.DestinationRoot, err = expandPath(c.Paths.DestinationRoot); err != nil {
		return fmt.Errorf("paths.destination_root: %w", err)
	}
	if c.Paths.TemplatePath, err = expandPath(c.Paths.TemplatePath); err != nil {
		return fmt.Errorf("paths.template_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeProject() {
	if override := strings.TrimSpace(os.Getenv("BAKER_USERNAME")); override != "" {
		c.Project.Username = override
	}
	c.Project.Username = strings.TrimSpace(c.Project.Username)
	if c.Project.Username == "" {
		c.Project.Username = strings.TrimSpace(os.Getenv("USER"))
	}
	if c.Project.Username == "" {
		c.Project.Username = "unknown"
	}

	folders := make([]string, 0, len(c.Project.ExtraFolders))
	for _, folder := range c.Project.ExtraFolders {
		folder = strings.Trim(strings.TrimSpace(folder), "/")
		if folder == "" {
			continue
		}
		folders = append(folders, folder)
	}
	c.Project.ExtraFolders = folders
}

func (c *Config) normalizeCopy() {
	if c.Copy.ProgressIntervalMS <= 0 {
		c.Copy.ProgressIntervalMS = defaultProgressIntervalMS
	}
	if c.Copy.FreeSpaceSlackMiB < 0 {
		c.Copy.FreeSpaceSlackMiB = 0
	}
}

func (c *Config) normalizeScanner() {
	if c.Scanner.MaxDepth <= 0 {
		c.Scanner.MaxDepth = defaultScannerMaxDepth
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.LockTimeoutSeconds < 0 {
		c.Workflow.LockTimeoutSeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
