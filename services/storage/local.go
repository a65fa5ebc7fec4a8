// Package storagesvc implements core.FileStore.
package storagesvc

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// localStore writes uploads under <root>/media/<bucket>/... and serves them
// back as <baseURL>/media/<bucket>/... (the API mounts the media dir as
// static files).
type localStore struct {
	root    string
	baseURL string
}

var _ core.FileStore = (*localStore)(nil)

func NewLocalStore(conf *core.Config) *localStore {
	return &localStore{
		root:    conf.WorkDir,
		baseURL: strings.TrimSuffix(conf.FrontendBaseURL, "/"),
	}
}

func (st localStore) Upload(ctx context.Context, bucket, path string, r io.Reader) (string, error) {
	dst := filepath.Join(st.root, "media", bucket, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", errors.Wrap(err, "creating media dir")
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", errors.Wrap(err, "creating media file")
	}
	defer func() { _ = f.Close() }()

	if _, err = io.Copy(f, r); err != nil {
		// do not leave a truncated file behind
		_ = os.Remove(dst)
		return "", errors.Wrap(err, "writing media file")
	}
	return path, nil
}

func (st localStore) PublicURL(bucket, path string) string {
	return st.baseURL + "/media/" + bucket + "/" + path
}
