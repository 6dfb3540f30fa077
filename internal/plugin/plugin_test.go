package plugin

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geopm-project/platformio-go/internal/provider"
)

type fakeRegistrar struct {
	mu        sync.Mutex
	providers []provider.Provider
}

func (f *fakeRegistrar) RegisterProvider(p provider.Provider) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers = append(f.providers, p)
	return nil
}

func (f *fakeRegistrar) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return names
}

func writeManifest(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	body := "X:\n  domain: board\n  value: \"1\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadExistingRegistersEveryManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "a.yaml")
	writeManifest(t, dir, "b.yaml")
	// non-manifest file must be ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("n/a"), 0o644))

	reg := &fakeRegistrar{}
	l := NewLoader(dir, "node01", reg)

	require.NoError(t, l.LoadExisting(context.Background()))
	assert.Len(t, reg.names(), 2)
}

func TestLoadExistingOnMissingDirIsNoop(t *testing.T) {
	reg := &fakeRegistrar{}
	l := NewLoader(filepath.Join(t.TempDir(), "missing"), "node01", reg)
	assert.NoError(t, l.LoadExisting(context.Background()))
	assert.Empty(t, reg.names())
}

func TestLoadExistingFailsOnInvalidManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("X:\n  domain: not_a_domain\n  value: \"1\"\n"), 0o644))

	reg := &fakeRegistrar{}
	l := NewLoader(dir, "node01", reg)
	assert.Error(t, l.LoadExisting(context.Background()))
}

func TestWatchRegistersNewManifest(t *testing.T) {
	dir := t.TempDir()
	reg := &fakeRegistrar{}
	l := NewLoader(dir, "node01", reg)
	require.NoError(t, l.Watch())
	defer l.Stop()

	writeManifest(t, dir, "new.yaml")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(reg.names()) == 1 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, []string{"CONST_CONFIG:new"}, reg.names())
}
