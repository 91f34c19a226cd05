// Package runtime manages containers backed by containerd.
//
// A [Runtime] connects to a containerd daemon and provides image import
// and container creation. OCI archives are imported, tagged with a
// deterministic content hash, unpacked for the target platform, and used
// to create containers with overlayfs snapshots.
//
// Each [Container] wraps a running containerd task. Commands are executed
// inside the container as direct argvs, tar streams are extracted into
// its filesystem, and the final filesystem state is committed and
// exported as a new OCI archive carrying the declared image config. When
// the container is no longer needed it should be destroyed to release
// its snapshot and task resources.
//
// [Runtime.RunApp] covers the run side: it starts a baked archive's own
// declared command, with optional environment overrides, and waits for
// the process to exit.
//
// Example usage:
//
//	rt, err := runtime.New("/run/containerd/containerd.sock", "spacebake")
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	ctr, err := rt.StartContainer(ctx, "base.tar", "bake-1", "linux/amd64")
//	if err != nil {
//	    return err
//	}
//	defer ctr.Destroy(ctx)
//
//	result, err := ctr.Exec(ctx, []string{"pip", "--version"}, nil, "/app")
//	if err != nil {
//	    return err
//	}
//
//	path, dgst, err := ctr.Export(ctx, "output", runtime.ImageConfig{
//	    Env:        []string{"PORT=7860"},
//	    WorkingDir: "/app",
//	    Cmd:        []string{"python", "app.py"},
//	})
package runtime
