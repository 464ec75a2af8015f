package platform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateDirectoryIfNotExists(t *testing.T) {
	tempDir := t.TempDir()
	testDir := filepath.Join(tempDir, "test_dir")

	// Directory should not exist initially
	if _, err := os.Stat(testDir); !os.IsNotExist(err) {
		t.Fatalf("Test directory already exists: %s", testDir)
	}

	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	if _, err := os.Stat(testDir); os.IsNotExist(err) {
		t.Fatalf("Directory was not created: %s", testDir)
	}

	// Second call should not fail
	if err := CreateDirectoryIfNotExists(testDir); err != nil {
		t.Fatalf("Failed to handle existing directory: %v", err)
	}
}

func TestGetHomeDownloadsDir(t *testing.T) {
	downloadsDir, err := GetHomeDownloadsDir()
	if err != nil {
		t.Fatalf("Failed to get downloads directory: %v", err)
	}

	if filepath.Base(downloadsDir) != "Downloads" {
		t.Errorf("Expected directory to end with 'Downloads', got: %s", downloadsDir)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestArtifactState(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		complete bool
		partial  bool
	}{
		{"nothing", nil, false, false},
		{"complete", map[string]string{"replay.mp4": "data"}, true, false},
		{"empty file is not complete", map[string]string{"replay.mp4": ""}, false, false},
		{"part sibling", map[string]string{"replay.mp4": "data", "replay.mp4.part": "x"}, true, true},
		{"ytdl sibling only", map[string]string{"replay.mp4.ytdl": "x"}, false, true},
		{"format fragment", map[string]string{"replay.mp4": "data", "replay.f137.mp4.part": "x"}, true, true},
		{"unrelated partial", map[string]string{"replay.mp4": "data", "other.mp4.part": "x"}, true, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range test.files {
				writeFile(t, filepath.Join(dir, name), content)
			}

			complete, partial := ArtifactState(filepath.Join(dir, "replay.mp4"))
			if complete != test.complete || partial != test.partial {
				t.Errorf("ArtifactState() = (%v, %v), expected (%v, %v)", complete, partial, test.complete, test.partial)
			}
		})
	}
}

func TestRevealInFileManager_NonExistentFile(t *testing.T) {
	err := RevealInFileManager(filepath.Join(t.TempDir(), "nonexistent.mp4"))
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}

	if !strings.Contains(err.Error(), "file does not exist:") {
		t.Errorf("Error message should contain 'file does not exist:', got: %v", err)
	}
}
