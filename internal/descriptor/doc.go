// Package descriptor models the container runtime descriptor: the
// declarative recipe spacebake bakes into an image.
//
// A descriptor names a base image, a working directory, a dependency
// manifest with its installer, the environment contract the image must
// carry, a cache directory provisioned world-writable before startup,
// and the startup command. The build plan derived from it is always the
// same seven steps in the same order; the descriptor only parameterizes
// them.
//
// Descriptors are loaded from YAML (spacebake.yaml by default). Unknown
// fields are rejected, missing fields are filled with the defaults that
// reproduce the canonical Python app image: python:3.11-slim, /app,
// requirements.txt installed with pip, PORT/HF_SPACE/MPLCONFIGDIR, a
// 0777 cache at /tmp/matplotlib-cache, and ["python", "app.py"] as the
// command. An empty file is therefore a complete descriptor.
package descriptor
