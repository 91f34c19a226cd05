package cli

import (
	"context"
	"errors"

	"github.com/AiCodeCraft/spacebake/internal/descriptor"
	"github.com/AiCodeCraft/spacebake/internal/launch"
)

// Represents the 'spacebake launch' command.
type LaunchCmd struct {
	Context string   `arg:"" optional:"" default:"." help:"Directory to launch in." type:"path"`
	File    string   `short:"f" help:"Descriptor path. Defaults to spacebake.yaml inside the context." placeholder:"PATH" type:"path"`
	Env     []string `short:"e" help:"Environment overrides for the launch (K=V)." placeholder:"K=V"`
}

func (c *LaunchCmd) Run(ctx context.Context) error {
	desc, err := descriptor.Load(descriptorPath(c.File, c.Context))
	if err != nil {
		return err
	}

	code, err := launch.Run(ctx, launch.Options{
		Descriptor: desc,
		Dir:        c.Context,
		Env:        c.Env,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
