// Package config holds CLI-facing configuration: named profiles
// carrying the hub URL, auth method, and certificate paths needed to
// construct a pkg/hub.Transport, loaded from a YAML file (SPEC_FULL.md
// section A.3).
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/obriencj/koji-habitude-go/pkg/errors"
)

// Profile is one named hub connection configuration.
type Profile struct {
	HubURL   string `yaml:"hub_url"`
	AuthMethod string `yaml:"auth_method"` // "noauth", "ssl", "kerberos"
	CertPath string `yaml:"cert_path,omitempty"`
	CACertPath string `yaml:"ca_cert_path,omitempty"`
	ServerCACertPath string `yaml:"server_ca_cert_path,omitempty"`
	Principal string `yaml:"principal,omitempty"`
	Keytab   string `yaml:"keytab,omitempty"`
}

// File is the on-disk shape of the config file: a map of profile name
// to Profile, plus which one is "default" absent an explicit selection.
type File struct {
	Profiles       map[string]Profile `yaml:"profiles"`
	DefaultProfile string             `yaml:"default_profile"`
}

// DefaultPath is where Load looks absent an explicit path, mirroring
// the teacher's convention of a dotfile under the user's home directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".koji-habitude.yaml"
	}
	return filepath.Join(home, ".koji-habitude.yaml")
}

// Load reads and parses the config file at path. A missing file yields
// an empty File, not an error, so a first run with only CLI flags and
// environment variables still works.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &File{Profiles: map[string]Profile{}}, nil
	}
	if err != nil {
		return nil, errors.NewYAMLError("reading config "+path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.NewYAMLError("parsing config "+path, err)
	}
	if f.Profiles == nil {
		f.Profiles = map[string]Profile{}
	}
	return &f, nil
}

// Save writes f to path as YAML, creating parent directories as needed.
func Save(path string, f *File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewInternalError("creating config directory for "+path, err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return errors.NewInternalError("marshaling config", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.NewInternalError("writing config "+path, err)
	}
	return nil
}

// Resolve picks the effective profile per the resolution order:
// explicit flag value, then KOJI_HABITUDE_PROFILE, then the file's
// default_profile, then the literal name "default" (SPEC_FULL.md
// section A.3).
func (f *File) Resolve(flagValue string) (Profile, string, error) {
	name := strings.TrimSpace(flagValue)
	if name == "" {
		name = strings.TrimSpace(os.Getenv("KOJI_HABITUDE_PROFILE"))
	}
	if name == "" {
		name = f.DefaultProfile
	}
	if name == "" {
		name = "default"
	}
	p, ok := f.Profiles[name]
	if !ok {
		return Profile{}, name, errors.NewValidationError("no such profile "+name, nil)
	}
	return p, name, nil
}
