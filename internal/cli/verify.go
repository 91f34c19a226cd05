package cli

import (
	"context"
	"fmt"

	"github.com/AiCodeCraft/spacebake/internal/descriptor"
	"github.com/AiCodeCraft/spacebake/internal/image"
)

// Represents the 'spacebake verify' command.
type VerifyCmd struct {
	Archive string `arg:"" help:"Image archive to verify." type:"path"`
	Context string `default:"." help:"Build context the archive was baked from." type:"path"`
	File    string `short:"f" help:"Descriptor path. Defaults to spacebake.yaml inside the context." placeholder:"PATH" type:"path"`
}

func (c *VerifyCmd) Run(ctx context.Context) error {
	desc, err := descriptor.Load(descriptorPath(c.File, c.Context))
	if err != nil {
		return err
	}

	report, err := image.Verify(c.Archive, desc, c.Context)
	if err != nil {
		return err
	}

	fmt.Print(report)

	if !report.OK() {
		return image.ErrVerification
	}
	return nil
}
