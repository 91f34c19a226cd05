package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/AiCodeCraft/spacebake/internal/spaceenv"
)

// Represents the 'spacebake env' command.
type EnvCmd struct {
	Defaults bool `help:"Show the contract defaults, ignoring the live environment."`
	JSON     bool `help:"Print the contract as JSON instead of K=V lines."`
}

func (c *EnvCmd) Run(ctx context.Context) error {
	cfg := spaceenv.Default()

	if !c.Defaults {
		var err error
		cfg, err = spaceenv.FromEnv()
		if err != nil {
			return err
		}
	}

	if c.JSON {
		doc := map[string]string{
			spaceenv.EnvPort:      strconv.Itoa(cfg.Port),
			spaceenv.EnvSpace:     strconv.FormatBool(cfg.Space),
			spaceenv.EnvPlotCache: cfg.PlotCache,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	for _, kv := range cfg.Environ() {
		fmt.Println(kv)
	}
	return nil
}
