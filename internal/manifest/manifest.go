package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"baker/internal/fileutil"
)

// FileName is the manifest file persisted inside every project folder.
const FileName = "breadcrumbs.json"

// FileEntry records one ingested media file and the camera it belongs to.
type FileEntry struct {
	Camera int    `json:"camera"`
	Name   string `json:"name"`
	Path   string `json:"path"`
}

// Manifest is the persisted record describing a project. It is a
// point-in-time snapshot written once when a build reaches the manifest
// step; later scanner refreshes update LastModified, ScannedBy, and
// FolderSizeBytes without touching the build-time fields.
type Manifest struct {
	ProjectTitle     string      `json:"projectTitle"`
	NumberOfCameras  int         `json:"numberOfCameras"`
	Files            []FileEntry `json:"files"`
	ParentFolder     string      `json:"parentFolder"`
	CreatedBy        string      `json:"createdBy"`
	CreationDateTime string      `json:"creationDateTime"`
	FolderSizeBytes  *uint64     `json:"folderSizeBytes,omitempty"`
	LastModified     *string     `json:"lastModified,omitempty"`
	ScannedBy        *string     `json:"scannedBy,omitempty"`
}

// New constructs a manifest snapshot with the creation timestamp set to now.
func New(title string, cameras int, files []FileEntry, parentFolder, createdBy string) Manifest {
	entries := make([]FileEntry, len(files))
	copy(entries, files)
	return Manifest{
		ProjectTitle:     strings.TrimSpace(title),
		NumberOfCameras:  cameras,
		Files:            entries,
		ParentFolder:     parentFolder,
		CreatedBy:        createdBy,
		CreationDateTime: time.Now().UTC().Format(time.RFC3339),
	}
}

// Validate checks the schema invariants: a non-empty title, at least one
// camera, a non-empty file list, and every entry's camera within range.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.ProjectTitle) == "" {
		return errors.New("projectTitle must not be empty")
	}
	if m.NumberOfCameras < 1 {
		return fmt.Errorf("numberOfCameras must be at least 1, got %d", m.NumberOfCameras)
	}
	if len(m.Files) == 0 {
		return errors.New("files must not be empty")
	}
	for i, entry := range m.Files {
		if entry.Camera < 1 || entry.Camera > m.NumberOfCameras {
			return fmt.Errorf("files[%d]: camera %d outside range 1..%d", i, entry.Camera, m.NumberOfCameras)
		}
		if strings.TrimSpace(entry.Path) == "" {
			return fmt.Errorf("files[%d]: path must not be empty", i)
		}
	}
	return nil
}

// Path returns the manifest location for the given project folder.
func Path(projectFolder string) string {
	return filepath.Join(projectFolder, FileName)
}

// Write validates and persists the manifest into projectFolder. The write is
// atomic: a reader either sees the complete file or no file at all.
func Write(projectFolder string, m Manifest) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(Path(projectFolder), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Read loads the manifest from projectFolder. A missing file returns
// (nil, nil) so callers can distinguish an absent manifest from a corrupt
// one, which returns an error.
func Read(projectFolder string) (*Manifest, error) {
	data, err := os.ReadFile(Path(projectFolder))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest malformed: %w", err)
	}
	return &m, nil
}
