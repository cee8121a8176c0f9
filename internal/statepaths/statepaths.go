// Package statepaths resolves the on-disk layout of the data directory:
// sessions/ for auth blobs, live/ for transcripts, media/ for downloaded
// payloads, profiles/ for synthesized profiles.
package statepaths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const defaultDataDirName = "data"

func DataDir() string {
	dir := strings.TrimSpace(viper.GetString("data_dir"))
	if dir == "" {
		dir = defaultDataDirName
	}
	return expandHomePath(dir)
}

func SessionsDir() string {
	return filepath.Join(DataDir(), "sessions")
}

func LiveDir() string {
	return filepath.Join(DataDir(), "live")
}

func MediaDir() string {
	return filepath.Join(DataDir(), "media")
}

func ProfilesDir() string {
	return filepath.Join(DataDir(), "profiles")
}

func LocksDir() string {
	return filepath.Join(DataDir(), ".locks")
}

// All returns every directory the pipeline writes into, for pre-creation.
func All() []string {
	return []string{SessionsDir(), LiveDir(), MediaDir(), ProfilesDir()}
}

func expandHomePath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil && home != "" {
			if path == "~" {
				return home
			}
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
