package storagesvc

import (
	"context"
	"io"
	"io/ioutil"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// MockStore keeps uploads in memory; tests can inspect them or force upload
// failures.
type MockStore struct {
	mu    sync.Mutex
	files map[string][]byte

	FailUploads bool
}

var _ core.FileStore = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{files: make(map[string][]byte)}
}

func (st *MockStore) Upload(ctx context.Context, bucket, path string, r io.Reader) (string, error) {
	if st.FailUploads {
		return "", errors.New("upload failed")
	}
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "reading upload")
	}

	st.mu.Lock()
	st.files[bucket+"/"+path] = data
	st.mu.Unlock()
	return path, nil
}

func (st *MockStore) PublicURL(bucket, path string) string {
	return "https://files.test/" + bucket + "/" + path
}

// Stored returns the uploaded content, if any.
func (st *MockStore) Stored(bucket, path string) ([]byte, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	data, ok := st.files[bucket+"/"+path]
	return data, ok
}
