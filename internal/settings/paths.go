package settings

import (
	"os"
	"path/filepath"
)

const appDirName = "restoctl"

// EnvConfigDir overrides the per-user configuration directory when set.
const EnvConfigDir = "RESTOCTL_CONFIG_DIR"

// ConfigDir resolves the directory holding the registry, the parameters file
// and the journal. Resolution order: explicit override, environment variable,
// then the per-user OS configuration directory.
func ConfigDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return env, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDirName), nil
}
