// Package settings is the storage layer: the registry document, the
// migration backup and the client parameters, all kept under one per-user
// configuration directory.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"restoctl/internal/domain"
	"restoctl/internal/registry"
)

const (
	registryFileName = "servers.json"
	backupFileName   = "servers.backup.json"

	dirMode  = 0o755
	fileMode = 0o600
)

// Store reads and writes the registry documents. Writes go through a
// temporary file in the same directory followed by a rename, so a
// concurrently starting process never observes a half-written document.
type Store struct {
	dir    string
	logger *zap.Logger
}

func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger.Named("settings")}
}

// RegistryPath returns the location of the persisted registry document.
func (s *Store) RegistryPath() string {
	return filepath.Join(s.dir, registryFileName)
}

// BackupPath returns the location of the migration backup document.
func (s *Store) BackupPath() string {
	return filepath.Join(s.dir, backupFileName)
}

// LoadRegistry reads the persisted registry. A missing file is a first run
// and yields an empty snapshot; a present but unreadable file is a
// persistence failure and the file is left untouched.
func (s *Store) LoadRegistry() (registry.Snapshot, error) {
	const op = "load registry"

	path := s.RegistryPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("no registry file, starting empty", zap.String("path", path))
			return registry.Snapshot{Version: registry.SchemaVersion}, nil
		}
		msg := fmt.Sprintf("registry file %s cannot be read", path)
		return registry.Snapshot{}, domain.E(domain.CodePersistence, op, msg, err)
	}

	var snapshot registry.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		msg := fmt.Sprintf("registry file %s is corrupt; refusing to overwrite it", path)
		return registry.Snapshot{}, domain.E(domain.CodePersistence, op, msg, err)
	}
	if snapshot.Version > registry.SchemaVersion {
		msg := fmt.Sprintf("registry file %s has schema version %d, newer than supported version %d",
			path, snapshot.Version, registry.SchemaVersion)
		return registry.Snapshot{}, domain.E(domain.CodePersistence, op, msg, nil)
	}
	return snapshot, nil
}

// SaveRegistry atomically replaces the registry document.
func (s *Store) SaveRegistry(snapshot registry.Snapshot) error {
	return s.writeJSON(s.RegistryPath(), snapshot)
}

// SaveBackup atomically replaces the migration backup document.
func (s *Store) SaveBackup(backup registry.Backup) error {
	return s.writeJSON(s.BackupPath(), backup)
}

func (s *Store) writeJSON(path string, value any) error {
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
