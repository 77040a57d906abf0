package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLastAndLoadLast(t *testing.T) {
	dir := t.TempDir()
	profiles := []Profile{{Name: "staging"}, {Name: "prod"}}

	if err := SaveLast(dir, "TestPackage", "prod"); err != nil {
		t.Fatalf("SaveLast: %v", err)
	}

	got, err := LoadLast(dir, "TestPackage", profiles)
	if err != nil {
		t.Fatalf("LoadLast: %v", err)
	}
	if got.Name != "prod" {
		t.Errorf("LoadLast: got %q, want prod", got.Name)
	}
}

func TestLoadLast_NoHistory(t *testing.T) {
	_, err := LoadLast(t.TempDir(), "TestPackage", []Profile{{Name: "staging"}})
	if err == nil {
		t.Fatal("LoadLast: expected error when no history file, got nil")
	}
	if err.Error() != "no history found for package 'TestPackage'" {
		t.Errorf("LoadLast: got error %q", err.Error())
	}
}

func TestLoadLast_ProfileRemoved(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "TestPackage_last_profile"), []byte("old\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadLast(dir, "TestPackage", []Profile{{Name: "staging"}})
	if err == nil {
		t.Fatal("LoadLast: expected error when last profile is gone, got nil")
	}
	if err.Error() != "last used profile 'old' not found in the profiles file" {
		t.Errorf("LoadLast: got error %q", err.Error())
	}
}
