// Package testutil holds the shared fixtures of the package tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitmark-inc/logger"

	"voting-ledger/mirror"
	"voting-ledger/storage"
)

// SetupTestLogger starts logging into dir at critical level only.
func SetupTestLogger(dir string) {
	_ = os.RemoveAll(dir)
	_ = os.Mkdir(dir, 0700)

	logging := logger.Configuration{
		Directory: dir,
		File:      "testing.log",
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}

	// start logging
	_ = logger.Initialise(logging)
}

// TeardownTestLogger stops logging and removes dir.
func TeardownTestLogger(dir string) {
	logger.Finalise()
	_ = os.RemoveAll(dir)
}

// SetupTestStore opens a fresh sqlite primary store in a temporary directory.
func SetupTestStore(t *testing.T) *storage.SQLStore {
	t.Helper()

	s, err := storage.Open(context.Background(), storage.SQLite, filepath.Join(t.TempDir(), "primary.db"))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// SetupTestMirror returns an in-memory LevelDB mirror.
func SetupTestMirror(t *testing.T) *mirror.LevelDBStore {
	t.Helper()

	m, err := mirror.NewMemoryLevelDB()
	if err != nil {
		t.Fatalf("Failed to open test mirror: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

// MakeRequest builds a request with a JSON encoded body
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}
