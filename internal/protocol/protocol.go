// Package protocol defines the wire format between the CLI and the
// daemon: JSON envelopes, one per line, over a Unix domain socket.
//
// Every message is an [Envelope] naming a command and carrying an
// optional payload. Requests use the build, status, history, and
// shutdown commands; responses use ok and error.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/AiCodeCraft/spacebake/internal/errs"
)

// A command named in an envelope.
type Command string

const (
	CmdBuild    Command = "build"
	CmdStatus   Command = "status"
	CmdHistory  Command = "history"
	CmdShutdown Command = "shutdown"

	CmdOK    Command = "ok"
	CmdError Command = "error"
)

// Wraps every message on the wire.
type Envelope struct {
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Asks the daemon to run a build. Paths are host paths; the daemon and
// CLI share a filesystem.
type BuildRequest struct {
	Descriptor string `json:"descriptor"` // Path to the descriptor file.
	Context    string `json:"context"`    // Build context directory.
	Output     string `json:"output"`     // Directory for the exported image.
	Tag        string `json:"tag"`        // Tag recorded for the image.
	Platform   string `json:"platform,omitempty"`
	NoCache    bool   `json:"no_cache,omitempty"`
}

// Returned for a successful build.
type BuildResult struct {
	Archive     string `json:"archive"`
	ImageDigest string `json:"image_digest"`
	Cached      bool   `json:"cached,omitempty"`
}

// Returned for a status command.
type StatusResult struct {
	Running bool   `json:"running"`
	Version string `json:"version"`
	Pid     int    `json:"pid"`
	Uptime  string `json:"uptime"`
	Builds  int    `json:"builds"` // Builds processed since start.
}

// One ledger record in a history response.
type HistoryEntry struct {
	Key         string    `json:"key"`
	Tag         string    `json:"tag"`
	Archive     string    `json:"archive"`
	ImageDigest string    `json:"image_digest"`
	CreatedAt   time.Time `json:"created_at"`
}

// Returned for a history command, newest first.
type HistoryResult struct {
	Builds []HistoryEntry `json:"builds"`
}

// Returned with [CmdError].
type ErrorResult struct {
	Message string `json:"message"`
}

// Encodes a command and payload as an envelope. The result carries no
// trailing newline; framing is the transport's business.
func Encode(cmd Command, payload any) ([]byte, error) {
	env := Envelope{Command: cmd}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errs.Wrap(ErrProtocol, err)
		}
		env.Payload = data
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, errs.Wrap(ErrProtocol, err)
	}
	return data, nil
}

// Decodes an envelope and returns it along with its raw payload.
// Unknown commands pass through; dispatch decides what is supported.
func Decode(data []byte) (*Envelope, json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, errs.Wrap(ErrProtocol, err)
	}
	if env.Command == "" {
		return nil, nil, errs.Wrapf(ErrProtocol, "envelope has no command")
	}
	return &env, env.Payload, nil
}

// Decodes a raw payload into its typed form.
func DecodePayload[T any](payload json.RawMessage) (*T, error) {
	if len(payload) == 0 {
		return nil, errs.Wrapf(ErrProtocol, "empty payload")
	}

	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, errs.Wrap(ErrProtocol, err)
	}
	return &v, nil
}
