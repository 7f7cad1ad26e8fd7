package workflow

import "strings"

// FileEntry describes one media file queued for ingest.
type FileEntry struct {
	Camera      int
	SourcePath  string
	DisplayName string
}

// Context holds the data accumulated across one build run. It is owned
// exclusively by the machine; callers only ever see copies.
type Context struct {
	Title           string
	CameraCount     int
	Files           []FileEntry
	DestinationRoot string
	Username        string
	CopyProgress    int
	ProjectFolder   string
	LastError       string
}

// ConfigPatch carries partial configuration updates applied while the
// machine is idle. Nil fields leave the current value untouched.
type ConfigPatch struct {
	Title           *string
	CameraCount     *int
	Files           []FileEntry
	DestinationRoot *string
	Username        *string
}

func (c *Context) applyPatch(patch *ConfigPatch) {
	if patch == nil {
		return
	}
	if patch.Title != nil {
		c.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.CameraCount != nil {
		c.CameraCount = *patch.CameraCount
	}
	if patch.Files != nil {
		c.Files = make([]FileEntry, len(patch.Files))
		copy(c.Files, patch.Files)
	}
	if patch.DestinationRoot != nil {
		c.DestinationRoot = *patch.DestinationRoot
	}
	if patch.Username != nil {
		c.Username = *patch.Username
	}
}

// resetRunState clears per-run fields while preserving the configured
// title, files, camera count, destination, and username.
func (c *Context) resetRunState() {
	c.CopyProgress = 0
	c.ProjectFolder = ""
	c.LastError = ""
}

func (c Context) clone() Context {
	files := make([]FileEntry, len(c.Files))
	copy(files, c.Files)
	c.Files = files
	return c
}

func clampPercent(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
