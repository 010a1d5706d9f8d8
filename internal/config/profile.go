package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/jobscout/jobscout/pkg/file"
)

// ProfileFileName is the profile file name under the data dir.
const ProfileFileName = "profile.json"

// Profile describes the person the search runs for. The background text
// feeds the suitability filter; the queries are seeds for query generation.
type Profile struct {
	// Name keys the per-user store files. Defaults to "default".
	Name string `json:"name"`

	// Background is free text about skills, experience, and preferences.
	Background string `json:"background"`

	// Queries seed the generate command with themes worth searching.
	Queries []string `json:"queries"`
}

// User returns the store key for this profile.
func (p Profile) User() string {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return "default"
	}
	return name
}

// LoadProfile reads the profile file. A missing file yields the zero
// Profile without error; the file may use JSON5 relaxed syntax.
func LoadProfile(path string) (Profile, error) {
	var profile Profile

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return profile, nil
		}
		return profile, err
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return profile, nil
	}

	if err := json5.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("invalid profile file: %w", err)
	}
	return profile, nil
}

// WriteProfile persists the profile atomically.
func WriteProfile(path string, profile Profile) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')
	return file.WriteAtomic(path, content, 0o600)
}
