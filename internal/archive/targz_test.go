package archive

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.h5")
	content := []byte("weights-weights-weights")
	if err := os.WriteFile(modelPath, content, 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}

	packagePath := filepath.Join(dir, "model.tar.gz")
	if err := Pack(modelPath, packagePath); err != nil {
		t.Fatalf("Pack err=%v", err)
	}

	outDir := filepath.Join(dir, "out")
	extracted, err := Unpack(packagePath, outDir)
	if err != nil {
		t.Fatalf("Unpack err=%v", err)
	}
	if len(extracted) != 1 {
		t.Fatalf("extracted %d entries, want 1", len(extracted))
	}
	if filepath.Base(extracted[0]) != "model.h5" {
		t.Fatalf("extracted %q, want model.h5", extracted[0])
	}
	got, err := os.ReadFile(extracted[0])
	if err != nil {
		t.Fatalf("read extracted: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: %q", got)
	}
}

func TestPackRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := Pack(dir, filepath.Join(dir, "out.tar.gz")); err == nil {
		t.Fatalf("Pack expected error for directory source")
	}
}

func TestPackMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := Pack(filepath.Join(dir, "nope.h5"), filepath.Join(dir, "out.tar.gz")); err == nil {
		t.Fatalf("Pack expected error for missing source")
	}
}
