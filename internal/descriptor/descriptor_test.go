package descriptor

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseEmptyInputIsDefaultDescriptor(t *testing.T) {
	got, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !reflect.DeepEqual(got, Default()) {
		t.Fatalf("Parse(empty) = %+v, want %+v", got, Default())
	}
}

func TestDefaultCarriesContractLiterals(t *testing.T) {
	d := Default()

	if d.Base != "python:3.11-slim" {
		t.Fatalf("Base = %q, want %q", d.Base, "python:3.11-slim")
	}
	if d.Workdir != "/app" {
		t.Fatalf("Workdir = %q, want %q", d.Workdir, "/app")
	}
	if d.Dependencies.Manifest != "requirements.txt" {
		t.Fatalf("Manifest = %q, want %q", d.Dependencies.Manifest, "requirements.txt")
	}

	wantInstaller := []string{"pip", "install", "--no-cache-dir", "-r"}
	if !reflect.DeepEqual(d.Dependencies.Installer, wantInstaller) {
		t.Fatalf("Installer = %v, want %v", d.Dependencies.Installer, wantInstaller)
	}

	wantEnv := map[string]string{
		"PORT":         "7860",
		"HF_SPACE":     "true",
		"MPLCONFIGDIR": "/tmp/matplotlib-cache",
	}
	if !reflect.DeepEqual(d.Env, wantEnv) {
		t.Fatalf("Env = %v, want %v", d.Env, wantEnv)
	}

	if d.Cache.Path != "/tmp/matplotlib-cache" {
		t.Fatalf("Cache.Path = %q, want %q", d.Cache.Path, "/tmp/matplotlib-cache")
	}
	if d.Cache.Mode != 0o777 {
		t.Fatalf("Cache.Mode = %s, want 0777", d.Cache.Mode)
	}

	wantCommand := []string{"python", "app.py"}
	if !reflect.DeepEqual(d.Command, wantCommand) {
		t.Fatalf("Command = %v, want %v", d.Command, wantCommand)
	}
}

func TestParseOverridesAndDefaultsMix(t *testing.T) {
	in := `
base: python:3.12-slim
env:
  PORT: "9000"
  EXTRA: value
command: [python, serve.py]
`
	got, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got.Base != "python:3.12-slim" {
		t.Fatalf("Base = %q, want override", got.Base)
	}
	if got.Workdir != "/app" {
		t.Fatalf("Workdir = %q, want default", got.Workdir)
	}
	if got.Env["PORT"] != "9000" {
		t.Fatalf("Env[PORT] = %q, want %q", got.Env["PORT"], "9000")
	}
	if got.Env["HF_SPACE"] != "true" {
		t.Fatalf("Env[HF_SPACE] = %q, want default %q", got.Env["HF_SPACE"], "true")
	}
	if got.Env["EXTRA"] != "value" {
		t.Fatalf("Env[EXTRA] = %q, want %q", got.Env["EXTRA"], "value")
	}
	if want := []string{"python", "serve.py"}; !reflect.DeepEqual(got.Command, want) {
		t.Fatalf("Command = %v, want %v", got.Command, want)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("comand: [python, app.py]\n"))
	if !errors.Is(err, ErrDescriptor) {
		t.Fatalf("Parse() error = %v, want ErrDescriptor", err)
	}
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := Parse(strings.NewReader("base: [unclosed\n"))
	if !errors.Is(err, ErrDescriptor) {
		t.Fatalf("Parse() error = %v, want ErrDescriptor", err)
	}
}

func TestModeAcceptsOctalSpellings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Mode
	}{
		{name: "unquoted with leading zero", in: "cache: {mode: 0777}", want: 0o777},
		{name: "quoted string", in: `cache: {mode: "777"}`, want: 0o777},
		{name: "explicit octal prefix", in: "cache: {mode: 0o755}", want: 0o755},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.in))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got.Cache.Mode != tt.want {
				t.Fatalf("Cache.Mode = %s, want %s", got.Cache.Mode, tt.want)
			}
		})
	}
}

func TestModeRejectsNonOctal(t *testing.T) {
	_, err := Parse(strings.NewReader("cache: {mode: open}"))
	if !errors.Is(err, ErrDescriptor) {
		t.Fatalf("Parse() error = %v, want ErrDescriptor", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Descriptor)
		wantErr string
	}{
		{
			name:    "relative workdir",
			mutate:  func(d *Descriptor) { d.Workdir = "app" },
			wantErr: "workdir",
		},
		{
			name:    "absolute manifest",
			mutate:  func(d *Descriptor) { d.Dependencies.Manifest = "/etc/requirements.txt" },
			wantErr: "manifest",
		},
		{
			name:    "manifest escaping the context",
			mutate:  func(d *Descriptor) { d.Dependencies.Manifest = "../requirements.txt" },
			wantErr: "escapes",
		},
		{
			name:    "empty installer with manifest",
			mutate:  func(d *Descriptor) { d.Dependencies.Installer = nil },
			wantErr: "installer",
		},
		{
			name:    "env name with equals sign",
			mutate:  func(d *Descriptor) { d.Env["A=B"] = "x" },
			wantErr: "env name",
		},
		{
			name:    "relative cache path",
			mutate:  func(d *Descriptor) { d.Cache.Path = "tmp/cache" },
			wantErr: "cache.path",
		},
		{
			name:    "cache mode beyond permission bits",
			mutate:  func(d *Descriptor) { d.Cache.Mode = 0o17777 },
			wantErr: "cache.mode",
		},
		{
			name:    "empty command",
			mutate:  func(d *Descriptor) { d.Command = nil },
			wantErr: "command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Default()
			tt.mutate(d)

			err := d.Validate()
			if !errors.Is(err, ErrDescriptor) {
				t.Fatalf("Validate() error = %v, want ErrDescriptor", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %q, want it to name %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestEnvironIsSorted(t *testing.T) {
	d := Default()
	d.Env["AAA"] = "first"

	got := d.Environ()
	want := []string{
		"AAA=first",
		"HF_SPACE=true",
		"MPLCONFIGDIR=/tmp/matplotlib-cache",
		"PORT=7860",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Environ() = %v, want %v", got, want)
	}
}

func TestDigestIgnoresSpelling(t *testing.T) {
	implicit, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	explicit, err := Parse(strings.NewReader("workdir: /app\ncommand: [python, app.py]\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	di, err := implicit.Digest()
	if err != nil {
		t.Fatalf("Digest() error = %v", err)
	}
	de, err := explicit.Digest()
	if err != nil {
		t.Fatalf("Digest() error = %v", err)
	}

	if di != de {
		t.Fatalf("digests differ: %s vs %s", di, de)
	}
}

func TestDigestChangesWithContent(t *testing.T) {
	a := Default()
	b := Default()
	b.Env["PORT"] = "9000"

	da, err := a.Digest()
	if err != nil {
		t.Fatalf("Digest() error = %v", err)
	}
	db, err := b.Digest()
	if err != nil {
		t.Fatalf("Digest() error = %v", err)
	}

	if da == db {
		t.Fatalf("digest did not change with env override")
	}
}

func TestStepsIsTheFixedPlan(t *testing.T) {
	want := []Step{
		StepBase,
		StepWorkdir,
		StepDependencies,
		StepCopy,
		StepEnv,
		StepCache,
		StepCommand,
	}

	if got := Default().Steps(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Steps() = %v, want %v", got, want)
	}
}
