package runtime

import (
	"reflect"
	"testing"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

func TestApplyImageConfig(t *testing.T) {
	manifest := ocispec.Manifest{
		Layers: []ocispec.Descriptor{{Digest: digest.FromString("base-layer")}},
	}
	config := ocispec.Image{
		Config: ocispec.ImageConfig{
			Env:        []string{"PATH=/usr/bin"},
			Cmd:        []string{"/bin/sh"},
			Entrypoint: []string{"/init"},
		},
		RootFS: ocispec.RootFS{
			DiffIDs: []digest.Digest{digest.FromString("base-diff")},
		},
	}

	layer := ocispec.Descriptor{Digest: digest.FromString("bake-layer")}
	diffID := digest.FromString("bake-diff")

	applyImageConfig(&manifest, &config, layer, diffID, ImageConfig{
		Env:        []string{"PORT=7860", "HF_SPACE=true"},
		WorkingDir: "/app",
		Cmd:        []string{"python", "app.py"},
	})

	if len(manifest.Layers) != 2 || manifest.Layers[1].Digest != layer.Digest {
		t.Fatalf("Layers = %v, want base layer plus %s", manifest.Layers, layer.Digest)
	}
	if len(config.RootFS.DiffIDs) != 2 || config.RootFS.DiffIDs[1] != diffID {
		t.Fatalf("DiffIDs = %v, want base diff plus %s", config.RootFS.DiffIDs, diffID)
	}

	if want := []string{"PORT=7860", "HF_SPACE=true"}; !reflect.DeepEqual(config.Config.Env, want) {
		t.Fatalf("Env = %v, want %v", config.Config.Env, want)
	}
	if config.Config.WorkingDir != "/app" {
		t.Fatalf("WorkingDir = %q, want %q", config.Config.WorkingDir, "/app")
	}
	if want := []string{"python", "app.py"}; !reflect.DeepEqual(config.Config.Cmd, want) {
		t.Fatalf("Cmd = %v, want %v", config.Config.Cmd, want)
	}

	// Cmd declaration must not disturb the entrypoint.
	if want := []string{"/init"}; !reflect.DeepEqual(config.Config.Entrypoint, want) {
		t.Fatalf("Entrypoint = %v, want %v", config.Config.Entrypoint, want)
	}
}

func TestApplyImageConfigEmptyKeepsBaseValues(t *testing.T) {
	config := ocispec.Image{
		Config: ocispec.ImageConfig{
			Env:        []string{"PATH=/usr/bin"},
			Cmd:        []string{"/bin/sh"},
			WorkingDir: "/",
		},
	}
	manifest := ocispec.Manifest{}

	applyImageConfig(&manifest, &config, ocispec.Descriptor{}, digest.FromString("d"), ImageConfig{})

	if want := []string{"PATH=/usr/bin"}; !reflect.DeepEqual(config.Config.Env, want) {
		t.Fatalf("Env = %v, want untouched %v", config.Config.Env, want)
	}
	if want := []string{"/bin/sh"}; !reflect.DeepEqual(config.Config.Cmd, want) {
		t.Fatalf("Cmd = %v, want untouched %v", config.Config.Cmd, want)
	}
	if config.Config.WorkingDir != "/" {
		t.Fatalf("WorkingDir = %q, want untouched %q", config.Config.WorkingDir, "/")
	}
}

func TestManifestGCLabels(t *testing.T) {
	m := ocispec.Manifest{
		Config: ocispec.Descriptor{
			Digest: digest.FromString("config"),
		},
		Layers: []ocispec.Descriptor{
			{Digest: digest.FromString("layer0")},
			{Digest: digest.FromString("layer1")},
		},
	}

	labels := manifestGCLabels(m)

	configLabel := labels["containerd.io/gc.ref.content.config"]
	if configLabel != m.Config.Digest.String() {
		t.Fatalf("config label = %q, want %q", configLabel, m.Config.Digest.String())
	}

	for i, layer := range m.Layers {
		key := "containerd.io/gc.ref.content.l." + string(rune('0'+i))
		got := labels[key]
		if got != layer.Digest.String() {
			t.Fatalf("labels[%q] = %q, want %q", key, got, layer.Digest.String())
		}
	}

	if len(labels) != 3 {
		t.Fatalf("len(labels) = %d, want 3", len(labels))
	}
}

func TestIndexGCLabels(t *testing.T) {
	idx := ocispec.Index{
		Manifests: []ocispec.Descriptor{
			{Digest: digest.FromString("m0")},
			{Digest: digest.FromString("m1")},
		},
	}

	labels := indexGCLabels(idx)
	if len(labels) != 2 {
		t.Fatalf("len(labels) = %d, want 2", len(labels))
	}
	for i, m := range idx.Manifests {
		key := "containerd.io/gc.ref.content.m." + string(rune('0'+i))
		if labels[key] != m.Digest.String() {
			t.Fatalf("labels[%q] = %q, want %q", key, labels[key], m.Digest.String())
		}
	}
}
