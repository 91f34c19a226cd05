// Package build executes a descriptor's plan against a build container.
//
// The plan is the fixed seven-step sequence: resolve the base, create
// the working directory, install dependencies from the manifest, copy
// the whole build context, record the environment, provision the cache
// directory, and declare the startup command. Steps run strictly in
// order; the first failure aborts the build with no retry and no
// rollback. There is no branching and there are no other step kinds.
//
// Container operations are delegated to the runtime package through the
// [Container] interface, so step execution is testable without a
// containerd daemon. Image configuration (environment, working
// directory, command) accumulates in an image state as the plan runs and
// is applied when the container is exported.
//
// Completed builds are fingerprinted by base digest, descriptor digest,
// and context tree digest. With a ledger attached, an unchanged
// fingerprint reuses the previously exported archive instead of
// rebuilding, which keeps rebuilds of an unchanged context
// bit-identical.
//
// Example usage:
//
//	result, err := build.Run(ctx, rt, build.Options{
//	    Descriptor: desc,
//	    Context:    ".",
//	    Output:     "dist",
//	    Tag:        "myapp:latest",
//	})
//	if err != nil {
//	    return err
//	}
package build
