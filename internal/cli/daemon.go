package cli

import (
	"context"
	"log/slog"

	"github.com/AiCodeCraft/spacebake/internal/server"
)

// Represents the 'spacebake daemon' command.
type DaemonCmd struct {
	Address   string `help:"Containerd socket address." default:"${containerd_address}"`
	Namespace string `help:"Containerd namespace." default:"${containerd_namespace}"`
}

// Executes the daemon command.
//
// Starts the bake daemon on a Unix domain socket and blocks until the
// context is cancelled (e.g. via SIGINT or SIGTERM) or a client sends
// shutdown.
func (c *DaemonCmd) Run(ctx context.Context) error {
	srv, err := server.New(server.Config{
		SocketPath:          RootCmd.Socket,
		ContainerdAddress:   c.Address,
		ContainerdNamespace: c.Namespace,
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("spacebake daemon is running")

	stopped := make(chan struct{})
	go func() {
		srv.Wait()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
		return srv.Stop()
	case <-stopped:
		slog.Info("stopped by client request")
		return nil
	}
}
