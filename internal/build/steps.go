package build

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/AiCodeCraft/spacebake/internal/descriptor"
	"github.com/AiCodeCraft/spacebake/internal/errs"
)

// Executes the descriptor's plan in order against the build container.
//
// Returns the image state the export must declare. The first failing
// step aborts the plan; later steps do not run.
func executePlan(ctx context.Context, ctr Container, d *descriptor.Descriptor, buildCtx string) (*imageState, error) {
	state := newImageState()

	steps := d.Steps()
	for i, step := range steps {
		slog.Info(fmt.Sprintf("step %d/%d: %s", i+1, len(steps), step))

		if err := executeStep(ctx, ctr, d, step, state, buildCtx); err != nil {
			return nil, errs.Wrapf(ErrBuild, "step %s: %w", step, err)
		}
	}

	return state, nil
}

// Executes a single plan step, dispatching on its kind.
func executeStep(ctx context.Context, ctr Container, d *descriptor.Descriptor, step descriptor.Step, state *imageState, buildCtx string) error {
	switch step {
	case descriptor.StepBase:
		// The container handed to the plan already runs on the resolved
		// base; the step completed when the container started.
		return nil

	case descriptor.StepWorkdir:
		if err := ctr.MkdirAll(ctx, d.Workdir); err != nil {
			return err
		}
		state.setWorkdir(d.Workdir)
		return nil

	case descriptor.StepDependencies:
		return installDependencies(ctx, ctr, d, buildCtx)

	case descriptor.StepCopy:
		return copyContext(ctx, ctr, buildCtx, d.Workdir)

	case descriptor.StepEnv:
		state.setEnv(d.Environ())
		return nil

	case descriptor.StepCache:
		if err := ctr.MkdirAll(ctx, d.Cache.Path); err != nil {
			return err
		}
		return ctr.Chmod(ctx, d.Cache.Path, fs.FileMode(d.Cache.Mode))

	case descriptor.StepCommand:
		state.declareCommand(d.Command)
		return nil
	}

	return errs.Wrapf(ErrBuild, "unknown step %d", int(step))
}

// Pushes the dependency manifest into the workdir and runs the installer
// on it inside the container.
//
// The step is atomic from the build's point of view: a missing manifest
// or a non-zero installer exit fails the build outright, with no
// partial-install recovery. The manifest lands flat in the workdir under
// its base name, which is also the name handed to the installer.
func installDependencies(ctx context.Context, ctr Container, d *descriptor.Descriptor, buildCtx string) error {
	manifest := d.Dependencies.Manifest
	if manifest == "" {
		slog.Debug("no dependency manifest declared")
		return nil
	}

	hostPath := filepath.Join(buildCtx, filepath.FromSlash(manifest))
	if _, err := os.Stat(hostPath); err != nil {
		return errs.Wrap(ErrDependencyInstall, err)
	}

	name := path.Base(manifest)
	if err := pushFile(ctx, ctr, hostPath, path.Join(d.Workdir, name)); err != nil {
		return errs.Wrap(ErrDependencyInstall, err)
	}

	argv := append(append([]string{}, d.Dependencies.Installer...), name)
	slog.Debug("installing dependencies", "argv", argv)

	result, err := ctr.Exec(ctx, argv, nil, d.Workdir)
	if err != nil {
		return errs.Wrap(ErrDependencyInstall, err)
	}
	if result.ExitCode != 0 {
		return errs.Wrapf(ErrDependencyInstall, "exit code %d: %s", result.ExitCode, result.Stderr)
	}

	return nil
}

// Materializes the application tree: tars the whole build context,
// unfiltered, and extracts it into the workdir.
func copyContext(ctx context.Context, ctr Container, buildCtx, workdir string) error {
	slog.Debug("copying context", "src", buildCtx, "dest", workdir)

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(tarTree(pw, buildCtx))
	}()

	if err := ctr.CopyTo(ctx, pr, workdir); err != nil {
		return errs.Wrap(ErrCopy, err)
	}

	return nil
}

// Streams a single host file into the container at the given absolute
// destination path.
func pushFile(ctx context.Context, ctr Container, hostPath, dest string) error {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(tarFile(pw, hostPath, path.Base(dest)))
	}()

	return ctr.CopyTo(ctx, pr, path.Dir(dest))
}
