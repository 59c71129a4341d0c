package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFixture(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.json")
	content := []byte(`{"value":"boots","label":"Boots"}`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	data := LoadFixture(t, path)
	if string(data) != string(content) {
		t.Errorf("LoadFixture returned %q, want %q", data, content)
	}
}

func TestLoadFixtureJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "item.json")
	if err := os.WriteFile(path, []byte(`{"value":"shoes","label":"Shoes"}`), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	var item struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}
	LoadFixtureJSON(t, path, &item)

	if item.Value != "shoes" || item.Label != "Shoes" {
		t.Errorf("LoadFixtureJSON decoded %+v", item)
	}
}

func TestWriteGolden_CreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "golden", "output.txt")

	WriteGolden(t, path, []byte("expected output"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read golden file: %v", err)
	}
	if string(data) != "expected output" {
		t.Errorf("golden file contains %q", data)
	}
}

func TestCompareWithGolden_CreatesMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.golden")

	CompareWithGolden(t, path, []byte("first run output"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("golden file was not created: %v", err)
	}
	if string(data) != "first run output" {
		t.Errorf("created golden file contains %q", data)
	}

	// Second run with identical data passes against the created file.
	CompareWithGolden(t, path, []byte("first run output"))
}

func TestFixturePath(t *testing.T) {
	got := FixturePath("cart.json")
	want := filepath.Join("testdata", "cart.json")
	if got != want {
		t.Errorf("FixturePath() = %q, want %q", got, want)
	}
}
