package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadDescriptorParsesWhitespaceSeparated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feat_num")
	if err := os.WriteFile(path, []byte("100\n50\n8\n"), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := ReadDescriptor(path)
	if err != nil {
		t.Fatal(err)
	}
	if d.UserNum != 100 || d.ItemNum != 50 || d.Dim != 8 {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
	if d.FeatNum() != 150 {
		t.Fatalf("expected FeatNum 150, got %d", d.FeatNum())
	}
}

func TestReadDescriptorRejectsNonPositiveDim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feat_num")
	if err := os.WriteFile(path, []byte("10 10 0"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadDescriptor(path); err == nil {
		t.Fatal("expected an error for a zero latent dimension")
	}
}

func TestReadDescriptorMissingFile(t *testing.T) {
	if _, err := ReadDescriptor(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected an error for a missing descriptor file")
	}
}
