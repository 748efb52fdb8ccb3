package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"restoctl/internal/domain"
	"restoctl/internal/registry"
)

func TestStore_FirstRunLoadsEmpty(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())

	snapshot, err := store.LoadRegistry()
	require.NoError(t, err)
	require.Equal(t, registry.SchemaVersion, snapshot.Version)
	require.Empty(t, snapshot.Servers)
	require.Empty(t, snapshot.Retired)
}

func TestStore_SaveAndLoadRoundtrip(t *testing.T) {
	store := NewStore(t.TempDir(), zap.NewNop())

	auth := domain.ServiceAccess{BaseURL: "https://auth.example.com/", Protocol: domain.ProtocolAuthSSOTheia}
	snapshot := registry.Snapshot{
		Version: registry.SchemaVersion,
		Servers: []domain.ServerDefinition{{
			Name:           "mine",
			Origin:         domain.OriginUserDefined,
			Application:    domain.ServiceAccess{BaseURL: "https://resto.example.com/", Protocol: domain.ProtocolTheiaVersion},
			Authentication: &auth,
			Status:         domain.StatusRunning,
			Cache: domain.ServerCache{Entries: map[string]domain.CacheEntry{
				domain.CacheKeyCollections: {
					Value:     json.RawMessage(`"c1"`),
					FetchedAt: time.Now().UTC().Truncate(time.Second),
				},
			}},
		}},
		Retired: []string{"gone"},
	}

	require.NoError(t, store.SaveRegistry(snapshot))

	loaded, err := store.LoadRegistry()
	require.NoError(t, err)
	if diff := cmp.Diff(snapshot, loaded); diff != "" {
		t.Fatalf("snapshot mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestStore_CorruptFileIsNotOverwritten(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zap.NewNop())

	path := store.RegistryPath()
	require.NoError(t, os.WriteFile(path, []byte("{ not json"), 0o600))

	_, err := store.LoadRegistry()
	require.True(t, domain.IsCode(err, domain.CodePersistence), "got %v", err)

	// The broken file is still there, byte for byte.
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	require.Equal(t, "{ not json", string(data))
}

func TestStore_RejectsNewerSchema(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zap.NewNop())

	require.NoError(t, os.WriteFile(store.RegistryPath(), []byte(`{"version": 99, "servers": []}`), 0o600))

	_, err := store.LoadRegistry()
	require.True(t, domain.IsCode(err, domain.CodePersistence), "got %v", err)
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zap.NewNop())

	require.NoError(t, store.SaveRegistry(registry.Snapshot{Version: registry.SchemaVersion}))
	require.NoError(t, store.SaveBackup(registry.Backup{SavedAt: time.Now()}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	require.ElementsMatch(t, []string{"servers.json", "servers.backup.json"}, names)
}

func TestStore_SaveCreatesConfigDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "restoctl")
	store := NewStore(dir, zap.NewNop())

	require.NoError(t, store.SaveRegistry(registry.Snapshot{Version: registry.SchemaVersion}))
	_, err := os.Stat(store.RegistryPath())
	require.NoError(t, err)
}
