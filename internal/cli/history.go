package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AiCodeCraft/spacebake/internal/client"
	"github.com/AiCodeCraft/spacebake/internal/paths"
	"github.com/AiCodeCraft/spacebake/internal/protocol"
	"github.com/AiCodeCraft/spacebake/internal/store"
)

// Represents the 'spacebake history' command.
type HistoryCmd struct {
	Remote bool `help:"Ask the daemon instead of reading the ledger directly."`
}

func (c *HistoryCmd) Run(ctx context.Context) error {
	entries, err := c.entries()
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("no builds recorded")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %-24s  %s  %s\n",
			e.CreatedAt.Local().Format(time.DateTime), e.Tag, shortDigest(e.ImageDigest), e.Archive)
	}
	return nil
}

// Collects history entries, newest first, from the daemon or straight
// from the ledger file.
func (c *HistoryCmd) entries() ([]protocol.HistoryEntry, error) {
	if c.Remote {
		result, err := client.New(RootCmd.Socket).History()
		if err != nil {
			return nil, err
		}
		return result.Builds, nil
	}

	ledger, err := store.Open(paths.Ledger())
	if err != nil {
		return nil, err
	}
	defer ledger.Close()

	records, err := ledger.List()
	if err != nil {
		return nil, err
	}

	entries := make([]protocol.HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, protocol.HistoryEntry{
			Key:         rec.Key,
			Tag:         rec.Tag,
			Archive:     rec.Archive,
			ImageDigest: rec.ImageDigest,
			CreatedAt:   rec.CreatedAt,
		})
	}
	return entries, nil
}

// Trims a sha256 digest down to the familiar short form.
func shortDigest(d string) string {
	if rest, ok := strings.CutPrefix(d, "sha256:"); ok && len(rest) >= 12 {
		return rest[:12]
	}
	return d
}
