package descriptor

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"

	"github.com/AiCodeCraft/spacebake/internal/errs"
	"github.com/AiCodeCraft/spacebake/internal/spaceenv"
)

const (

	// Descriptor file name looked up in the build context by default.
	DefaultName = "spacebake.yaml"

	// Base image a descriptor resolves to when none is declared.
	DefaultBase = "python:3.11-slim"

	// In-image working directory the application tree lands in.
	DefaultWorkdir = "/app"

	// Dependency manifest expected at the context root.
	DefaultManifest = "requirements.txt"
)

// Returns the installer argv the manifest is appended to.
func DefaultInstaller() []string {
	return []string{"pip", "install", "--no-cache-dir", "-r"}
}

// Returns the startup argv: interpreter followed by entry-point script.
func DefaultCommand() []string {
	return []string{"python", "app.py"}
}

// Returns the environment literals baked into every image. HF_SPACE is
// "true" here even though its runtime default is false: images declare
// the platform, processes outside an image do not.
func DefaultEnv() map[string]string {
	return map[string]string{
		spaceenv.EnvPort:      "7860",
		spaceenv.EnvSpace:     "true",
		spaceenv.EnvPlotCache: spaceenv.DefaultPlotCache,
	}
}

// Permission mode of a filesystem path, decodable from YAML as an octal
// scalar ("0777", 777, or 0o777).
type Mode fs.FileMode

func (m Mode) String() string {
	return "0" + strconv.FormatUint(uint64(m), 8)
}

// Decodes an octal mode scalar.
func (m *Mode) UnmarshalYAML(value *yaml.Node) error {
	s := strings.TrimPrefix(strings.TrimPrefix(value.Value, "0o"), "0O")

	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return errs.Wrapf(ErrDescriptor, "cache mode %q is not an octal mode", value.Value)
	}

	*m = Mode(v)
	return nil
}

// Encodes the mode back to its octal form.
func (m Mode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// Dependency installation: a manifest file taken from the build context
// and the installer argv it is handed to.
type Dependencies struct {
	Manifest  string   `yaml:"manifest,omitempty"`  // Context-relative manifest path.
	Installer []string `yaml:"installer,omitempty"` // Installer argv; manifest is appended.
}

// Cache directory provisioned inside the image before startup.
type Cache struct {
	Path string `yaml:"path,omitempty"` // Absolute in-image path.
	Mode Mode   `yaml:"mode,omitempty"` // Permission mode, octal.
}

// A container runtime descriptor: everything the build plan needs.
type Descriptor struct {
	Base         string            `yaml:"base,omitempty"`         // Base image ref or OCI archive path.
	Workdir      string            `yaml:"workdir,omitempty"`      // Absolute in-image working directory.
	Dependencies Dependencies      `yaml:"dependencies,omitempty"` // Dependency installation.
	Env          map[string]string `yaml:"env,omitempty"`          // Image environment variables.
	Cache        Cache             `yaml:"cache,omitempty"`        // Plot cache directory.
	Command      []string          `yaml:"command,omitempty"`      // Startup argv.
}

// Returns the fully defaulted descriptor: what an empty file loads as.
func Default() *Descriptor {
	d := &Descriptor{}
	d.applyDefaults()
	return d
}

// Reads and parses the descriptor file at path.
//
// A missing file is reported as ErrNotFound so callers can distinguish
// "no descriptor here" from a malformed one.
func Load(path string) (*Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrapf(ErrNotFound, "%s", path)
		}
		return nil, errs.Wrap(ErrDescriptor, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parses a descriptor from r.
//
// The decode is strict: fields not in the schema are errors, catching
// typos like "comand". Empty input yields the default descriptor. The
// result is defaulted and validated before it is returned.
func Parse(r io.Reader) (*Descriptor, error) {
	d := &Descriptor{}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(d); err != nil && err != io.EOF {
		if errors.Is(err, ErrDescriptor) {
			return nil, err
		}
		return nil, errs.Wrap(ErrDescriptor, err)
	}

	d.applyDefaults()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	return d, nil
}

// Fills every unset field with its default. Idempotent: defaulting an
// already-defaulted descriptor changes nothing.
func (d *Descriptor) applyDefaults() {
	if d.Base == "" {
		d.Base = DefaultBase
	}
	if d.Workdir == "" {
		d.Workdir = DefaultWorkdir
	}
	if d.Dependencies.Manifest == "" {
		d.Dependencies.Manifest = DefaultManifest
	}
	if len(d.Dependencies.Installer) == 0 {
		d.Dependencies.Installer = DefaultInstaller()
	}
	if d.Env == nil {
		d.Env = map[string]string{}
	}
	for k, v := range DefaultEnv() {
		if _, ok := d.Env[k]; !ok {
			d.Env[k] = v
		}
	}
	if d.Cache.Path == "" {
		d.Cache.Path = spaceenv.DefaultPlotCache
	}
	if d.Cache.Mode == 0 {
		d.Cache.Mode = Mode(spaceenv.CacheMode)
	}
	if len(d.Command) == 0 {
		d.Command = DefaultCommand()
	}
}

// Checks the descriptor's structural rules. Every failure names the
// offending field.
func (d *Descriptor) Validate() error {
	if d.Base == "" {
		return errs.Wrapf(ErrDescriptor, "base must not be empty")
	}
	if !path.IsAbs(d.Workdir) {
		return errs.Wrapf(ErrDescriptor, "workdir %q must be absolute", d.Workdir)
	}
	if len(d.Command) == 0 {
		return errs.Wrapf(ErrDescriptor, "command must not be empty")
	}

	if m := d.Dependencies.Manifest; m != "" {
		if path.IsAbs(m) {
			return errs.Wrapf(ErrDescriptor, "dependencies.manifest %q must be context-relative", m)
		}
		if clean := path.Clean(m); clean == ".." || strings.HasPrefix(clean, "../") {
			return errs.Wrapf(ErrDescriptor, "dependencies.manifest %q escapes the context", m)
		}
		if len(d.Dependencies.Installer) == 0 {
			return errs.Wrapf(ErrDescriptor, "dependencies.installer must not be empty when a manifest is declared")
		}
	}

	for k := range d.Env {
		if k == "" {
			return errs.Wrapf(ErrDescriptor, "env contains an empty variable name")
		}
		if strings.Contains(k, "=") {
			return errs.Wrapf(ErrDescriptor, "env name %q must not contain '='", k)
		}
	}

	if !path.IsAbs(d.Cache.Path) {
		return errs.Wrapf(ErrDescriptor, "cache.path %q must be absolute", d.Cache.Path)
	}
	if d.Cache.Mode > 0o7777 {
		return errs.Wrapf(ErrDescriptor, "cache.mode %s has bits beyond a permission mode", d.Cache.Mode)
	}

	return nil
}

// Renders the environment as sorted K=V pairs. Sorting keeps the image
// config, and everything digested from it, deterministic.
func (d *Descriptor) Environ() []string {
	env := make([]string, 0, len(d.Env))
	for k, v := range d.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// Returns the content digest of the defaulted descriptor.
//
// Two descriptors that resolve to the same effective recipe digest
// identically, whether their fields were spelled out or defaulted. Used
// as one third of the rebuild cache key.
func (d *Descriptor) Digest() (digest.Digest, error) {
	b, err := yaml.Marshal(d)
	if err != nil {
		return "", errs.Wrap(ErrDescriptor, err)
	}
	return digest.FromBytes(b), nil
}
