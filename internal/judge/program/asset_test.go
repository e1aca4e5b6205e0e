package program_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"fuzoj/internal/judge/program"
)

func TestLocalAssetFetch(t *testing.T) {
	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "answer.txt")
	if err := os.WriteFile(srcPath, []byte("42\n"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	dstDir := t.TempDir()
	asset := program.LocalAsset{FileName: "answer.txt", Path: srcPath}
	if err := asset.Fetch(context.Background(), dstDir); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dstDir, "answer.txt"))
	if err != nil {
		t.Fatalf("read fetched file: %v", err)
	}
	if string(got) != "42\n" {
		t.Fatalf("content = %q, want %q", got, "42\n")
	}
}

func TestTextAssetFetch(t *testing.T) {
	dstDir := t.TempDir()
	asset := program.TextAsset{FileName: "main.py", Text: "print('hi')\n"}
	if err := asset.Fetch(context.Background(), dstDir); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dstDir, "main.py"))
	if err != nil {
		t.Fatalf("read fetched file: %v", err)
	}
	if string(got) != "print('hi')\n" {
		t.Fatalf("content = %q", got)
	}
}

func TestRemoteAssetFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remote-body"))
	}))
	defer srv.Close()

	dstDir := t.TempDir()
	asset := program.RemoteAsset{FileName: "data.bin", URL: srv.URL}
	if err := asset.Fetch(context.Background(), dstDir); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dstDir, "data.bin"))
	if err != nil {
		t.Fatalf("read fetched file: %v", err)
	}
	if string(got) != "remote-body" {
		t.Fatalf("content = %q", got)
	}
}

func TestRemoteAssetFetchRejectsNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	asset := program.RemoteAsset{FileName: "missing.bin", URL: srv.URL}
	if err := asset.Fetch(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
