package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/AiCodeCraft/spacebake/internal"
	"github.com/AiCodeCraft/spacebake/internal/build"
	"github.com/AiCodeCraft/spacebake/internal/descriptor"
	"github.com/AiCodeCraft/spacebake/internal/protocol"
)

// Handles a build command.
//
// Loads the descriptor named in the request and bakes it against the
// container runtime. The build is cancelled if the client disconnects.
func (s *Server) handleBuild(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.BuildRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	desc, err := descriptor.Load(req.Descriptor)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	result, err := build.Run(ctx, s.runtime, build.Options{
		Descriptor: desc,
		Context:    req.Context,
		Output:     req.Output,
		Tag:        req.Tag,
		Platform:   req.Platform,
		NoCache:    req.NoCache,
		Ledger:     s.ledger,
	})
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	s.mu.Lock()
	s.builds++
	s.mu.Unlock()

	s.respond(conn, protocol.CmdOK, &protocol.BuildResult{
		Archive:     result.Archive,
		ImageDigest: result.ImageDigest,
		Cached:      result.Cached,
	})
}

// Handles a status command.
func (s *Server) handleStatus(conn net.Conn) {
	s.mu.Lock()
	builds := s.builds
	s.mu.Unlock()

	uptime := time.Since(s.startedAt).Truncate(time.Second)

	s.respond(conn, protocol.CmdOK, &protocol.StatusResult{
		Running: true,
		Version: internal.VersionString(),
		Pid:     os.Getpid(),
		Uptime:  uptime.String(),
		Builds:  builds,
	})
}

// Handles a history command: the ledger's records, newest first. An
// unavailable ledger yields an empty history, not an error.
func (s *Server) handleHistory(conn net.Conn) {
	result := &protocol.HistoryResult{Builds: []protocol.HistoryEntry{}}

	if s.ledger != nil {
		records, err := s.ledger.List()
		if err != nil {
			s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
			return
		}
		for _, rec := range records {
			result.Builds = append(result.Builds, protocol.HistoryEntry{
				Key:         rec.Key,
				Tag:         rec.Tag,
				Archive:     rec.Archive,
				ImageDigest: rec.ImageDigest,
				CreatedAt:   rec.CreatedAt,
			})
		}
	}

	s.respond(conn, protocol.CmdOK, result)
}

// Handles a shutdown command.
func (s *Server) handleShutdown(conn net.Conn) {
	s.respond(conn, protocol.CmdOK, nil)
	slog.Info("shutdown requested")

	go func() {
		s.Stop()
	}()
}
