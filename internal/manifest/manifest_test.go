package manifest_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"baker/internal/manifest"
)

func sampleManifest() manifest.Manifest {
	return manifest.New(
		"Shoot1",
		2,
		[]manifest.FileEntry{
			{Camera: 1, Name: "a.mov", Path: "/media/card/a.mov"},
			{Camera: 2, Name: "b.mov", Path: "/media/card/b.mov"},
		},
		"/dest",
		"editor",
	)
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := sampleManifest()

	if err := manifest.Write(dir, want); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := manifest.Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got == nil {
		t.Fatal("expected manifest, got nil")
	}
	if !reflect.DeepEqual(*got, want) {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", *got, want)
	}
}

func TestReadAbsentReturnsNilWithoutError(t *testing.T) {
	got, err := manifest.Read(t.TempDir())
	if err != nil {
		t.Fatalf("expected nil error for absent manifest, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil manifest, got %+v", got)
	}
}

func TestReadCorruptReturnsError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(manifest.Path(dir), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := manifest.Read(dir); err == nil {
		t.Fatal("expected parse error for corrupt manifest")
	}
}

func TestReadRejectsSchemaViolations(t *testing.T) {
	dir := t.TempDir()
	content := `{"projectTitle":"X","numberOfCameras":1,"files":[{"camera":3,"name":"a","path":"/a"}],"parentFolder":"/dest","createdBy":"u","creationDateTime":"2026-01-02T00:00:00Z"}`
	if err := os.WriteFile(manifest.Path(dir), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := manifest.Read(dir)
	if err == nil || !strings.Contains(err.Error(), "camera") {
		t.Fatalf("expected camera range error, got %v", err)
	}
}

func TestWriteRejectsInvalidManifest(t *testing.T) {
	m := sampleManifest()
	m.Files = nil
	if err := manifest.Write(t.TempDir(), m); err == nil {
		t.Fatal("expected validation error for empty files")
	}
}

func TestValidateCameraRange(t *testing.T) {
	m := sampleManifest()
	m.Files[1].Camera = 0
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for camera below range")
	}
}

func TestWriteUsesCamelCaseFields(t *testing.T) {
	dir := t.TempDir()
	if err := manifest.Write(dir, sampleManifest()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, manifest.FileName))
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"projectTitle"`, `"numberOfCameras"`, `"parentFolder"`, `"createdBy"`, `"creationDateTime"`} {
		if !strings.Contains(string(data), field) {
			t.Fatalf("serialized manifest missing %s:\n%s", field, data)
		}
	}
	if strings.Contains(string(data), "lastModified") {
		t.Fatalf("optional empty fields should be omitted:\n%s", data)
	}
}
