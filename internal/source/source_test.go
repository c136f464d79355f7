package source

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFetchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grades.csv")
	if err := os.WriteFile(path, []byte("patient_case,trial_id\nQ,NCT001\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	text, err := Fetch(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "NCT001") {
		t.Errorf("unexpected content: %q", text)
	}
}

func TestFetchMissingFile(t *testing.T) {
	if _, err := Fetch(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFetchURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("patient_case,trial_id\nQ,NCT002\n"))
	}))
	defer srv.Close()

	text, err := Fetch(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "NCT002") {
		t.Errorf("unexpected content: %q", text)
	}
}

func TestFetchURLBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := Fetch(srv.URL); err == nil {
		t.Error("expected error for non-200 status")
	}
}

func TestFetchUnconfigured(t *testing.T) {
	if _, err := Fetch(""); err == nil {
		t.Error("expected error for empty location")
	}
}
