package build

import "github.com/AiCodeCraft/spacebake/internal/runtime"

// Tracks the image configuration accumulated while the plan runs.
//
// Steps record what the exported image must declare; nothing here
// touches the build container. The export consumes the final state.
type imageState struct {
	workdir string   // Working directory the image declares.
	env     []string // Environment literals in K=V form.
	cmd     []string // Startup argv.
}

// Creates an empty [imageState].
func newImageState() *imageState {
	return &imageState{}
}

// Records the working directory the image declares.
func (s *imageState) setWorkdir(dir string) {
	s.workdir = dir
}

// Records the environment the image declares.
func (s *imageState) setEnv(env []string) {
	s.env = env
}

// Records the startup command the image declares.
func (s *imageState) declareCommand(argv []string) {
	s.cmd = argv
}

// Returns the accumulated configuration for the export.
func (s *imageState) image() runtime.ImageConfig {
	return runtime.ImageConfig{
		Env:        s.env,
		WorkingDir: s.workdir,
		Cmd:        s.cmd,
	}
}
