package runtime

import (
	"context"
	"io"
	"log/slog"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"

	"github.com/AiCodeCraft/spacebake/internal/errs"
)

// Runs the application a baked archive declares and waits for it to exit.
//
// The archive is imported and unpacked like a build base, but the task
// runs the image's own command: no argv override, so the process is
// exactly the interpreter and script the image config declares, started
// in the image's working directory with the image's environment. Entries
// in env are applied on top of the image config, so callers can override
// contract variables (PORT, HF_SPACE, MPLCONFIGDIR) without rebuilding.
//
// Stdout and stderr are streamed to the given writers. When ctx is
// cancelled the task receives SIGTERM; the deferred teardown kills
// whatever is left. The container, its snapshot, and the imported image
// record are removed before returning. Returns the process exit code.
func (rt *Runtime) RunApp(ctx context.Context, path, id string, env []string, stdout, stderr io.Writer) (int, error) {
	platform := DefaultPlatform()
	tag := imageTag(path)

	image, err := rt.prepareImage(ctx, path, tag, platform)
	if err != nil {
		return 0, err
	}

	c := &Container{
		client:   rt.client,
		id:       id,
		platform: platform,
	}

	// Remove leftovers from a previous run with the same ID.
	c.remove(ctx)

	ctr, err := c.createApp(ctx, image, env)
	if err != nil {
		return 0, errs.Wrap(ErrRuntime, err)
	}
	defer func() {
		// Teardown must not use ctx: it has to run after cancellation.
		cleanup := context.Background()
		ctr.Delete(cleanup, containerd.WithSnapshotCleanup)
		rt.DestroyImage(cleanup, tag)
	}()

	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	task, err := ctr.NewTask(ctx, cio.NewCreator(cio.WithStreams(nil, stdout, stderr)))
	if err != nil {
		return 0, errs.Wrap(ErrRuntime, err)
	}
	defer task.Delete(context.Background(), containerd.WithProcessKill)

	statusC, err := task.Wait(ctx)
	if err != nil {
		return 0, errs.Wrap(ErrRuntime, err)
	}

	if err := task.Start(ctx); err != nil {
		return 0, errs.Wrap(ErrRuntime, err)
	}

	slog.Info("application started", "id", id, "archive", path)

	select {
	case <-ctx.Done():
		task.Kill(context.Background(), syscall.SIGTERM)
		status := <-statusC
		code, _, _ := status.Result()
		return int(code), ctx.Err()

	case status := <-statusC:
		code, _, err := status.Result()
		if err != nil {
			return 0, errs.Wrap(ErrRuntime, err)
		}

		slog.Info("application exited", "id", id, "code", code)
		return int(code), nil
	}
}
