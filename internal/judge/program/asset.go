// Package program resolves a submission's program files onto disk ahead
// of compilation: a plain single-file upload (the common case, handled
// directly by service.downloadSource), a multi-file source with
// assist files, or a Git repository clone with file overrides. Grounded
// on original_source/include/program.hpp and src/asset.cpp's asset/program
// sum types, generalized from C++ virtual dispatch to Go interfaces.
package program

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	appErr "fuzoj/pkg/errors"
)

// Asset is one file a program needs materialized into its working
// directory before it can run, mirroring asset.hpp's three fetch
// strategies: a local copy, literal text, or an HTTP download.
type Asset interface {
	// Name is the file's name relative to the destination directory.
	Name() string
	// Fetch writes the asset's content under dir/Name().
	Fetch(ctx context.Context, dir string) error
}

// LocalAsset copies a file already present on the judge host, e.g. an
// assist file or a Git override.
type LocalAsset struct {
	FileName string
	Path     string
}

func (a LocalAsset) Name() string { return a.FileName }

func (a LocalAsset) Fetch(_ context.Context, dir string) error {
	src, err := os.Open(a.Path)
	if err != nil {
		return appErr.Wrapf(err, appErr.JudgeSystemError, "open local asset failed")
	}
	defer src.Close()
	return writeFile(filepath.Join(dir, a.FileName), src)
}

// TextAsset writes a literal string. JudgeMessage carries no inline
// source, so the judge service does not build one from a message.
type TextAsset struct {
	FileName string
	Text     string
}

func (a TextAsset) Name() string { return a.FileName }

func (a TextAsset) Fetch(_ context.Context, dir string) error {
	return os.WriteFile(filepath.Join(dir, a.FileName), []byte(a.Text), 0644)
}

// RemoteAsset downloads a file over HTTP(S). The problem config holds no
// asset URLs, so the judge service does not build one from it.
type RemoteAsset struct {
	FileName string
	URL      string
	Client   *http.Client
}

func (a RemoteAsset) Name() string { return a.FileName }

func (a RemoteAsset) Fetch(ctx context.Context, dir string) error {
	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return appErr.Wrapf(err, appErr.JudgeSystemError, "build asset download request failed")
	}
	resp, err := client.Do(req)
	if err != nil {
		return appErr.Wrapf(err, appErr.JudgeSystemError, "download asset failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return appErr.Newf(appErr.JudgeSystemError, "download asset failed: status %d", resp.StatusCode)
	}
	return writeFile(filepath.Join(dir, a.FileName), resp.Body)
}

func writeFile(path string, r io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return appErr.Wrapf(err, appErr.JudgeSystemError, "create asset file failed")
	}
	defer dst.Close()
	if _, err := io.Copy(dst, r); err != nil {
		return appErr.Wrapf(err, appErr.JudgeSystemError, "write asset file failed")
	}
	return nil
}
