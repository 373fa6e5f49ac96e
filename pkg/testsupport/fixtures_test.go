package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFixture(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	testContent := []byte("test fixture content")

	if err := os.WriteFile(testFile, testContent, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := LoadFixture(t, testFile)
	if string(result) != string(testContent) {
		t.Errorf("expected %q, got %q", testContent, result)
	}
}

func TestLoadFixtureJSON(t *testing.T) {
	testData := map[string]any{
		"alias": "warehouse",
		"order": 2,
	}
	jsonData, err := json.Marshal(testData)
	if err != nil {
		t.Fatalf("failed to marshal test data: %v", err)
	}
	path := TempFile(t, "connection.json", jsonData)

	var result map[string]any
	LoadFixtureJSON(t, path, &result)

	if result["alias"] != "warehouse" {
		t.Errorf("expected alias=warehouse, got %v", result["alias"])
	}
	if result["order"] != float64(2) { // JSON unmarshals numbers as float64
		t.Errorf("expected order=2, got %v", result["order"])
	}
}

func TestLoadFixtureYAML(t *testing.T) {
	path := TempFile(t, "config.yaml", []byte("store:\n  driver: sqlite\n  dsn: meta.db\n"))

	var result struct {
		Store struct {
			Driver string `yaml:"driver"`
			DSN    string `yaml:"dsn"`
		} `yaml:"store"`
	}
	LoadFixtureYAML(t, path, &result)

	if result.Store.Driver != "sqlite" {
		t.Errorf("expected driver=sqlite, got %q", result.Store.Driver)
	}
	if result.Store.DSN != "meta.db" {
		t.Errorf("expected dsn=meta.db, got %q", result.Store.DSN)
	}
}

func TestTempFile(t *testing.T) {
	path := TempFile(t, "x.txt", []byte("hello"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected temp file to exist: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected hello, got %q", data)
	}
	if filepath.Base(path) != "x.txt" {
		t.Errorf("expected file name x.txt, got %s", filepath.Base(path))
	}
}

func TestFixturePath(t *testing.T) {
	expected := filepath.Join("testdata", "connections.json")
	if got := FixturePath("connections.json"); got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}
