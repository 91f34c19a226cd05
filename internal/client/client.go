// Package client talks to the bake daemon over its Unix socket.
//
// Every method is one request-response exchange on a fresh connection,
// mirroring the daemon's one-exchange-per-connection contract. Keeping
// the connection open for the duration of a call is load-bearing for
// builds: the daemon cancels a build when its client disconnects.
package client

import (
	"bufio"
	"encoding/json"
	"net"
	"time"

	"github.com/AiCodeCraft/spacebake/internal/errs"
	"github.com/AiCodeCraft/spacebake/internal/paths"
	"github.com/AiCodeCraft/spacebake/internal/protocol"
)

// Connect timeout. Requests themselves have no deadline: a build holds
// the connection for as long as the build runs.
const dialTimeout = 2 * time.Second

// A daemon client bound to one socket path.
type Client struct {
	socketPath string
}

// Creates a client. An empty socket path uses the default.
func New(socketPath string) *Client {
	if socketPath == "" {
		socketPath = paths.Socket()
	}
	return &Client{socketPath: socketPath}
}

// Asks the daemon to run a build.
func (c *Client) Build(req *protocol.BuildRequest) (*protocol.BuildResult, error) {
	payload, err := c.call(protocol.CmdBuild, req)
	if err != nil {
		return nil, err
	}
	return protocol.DecodePayload[protocol.BuildResult](payload)
}

// Queries daemon status.
func (c *Client) Status() (*protocol.StatusResult, error) {
	payload, err := c.call(protocol.CmdStatus, nil)
	if err != nil {
		return nil, err
	}
	return protocol.DecodePayload[protocol.StatusResult](payload)
}

// Fetches the daemon's build history, newest first.
func (c *Client) History() (*protocol.HistoryResult, error) {
	payload, err := c.call(protocol.CmdHistory, nil)
	if err != nil {
		return nil, err
	}
	return protocol.DecodePayload[protocol.HistoryResult](payload)
}

// Asks the daemon to shut down.
func (c *Client) Shutdown() error {
	_, err := c.call(protocol.CmdShutdown, nil)
	return err
}

// Performs one exchange and unwraps the response envelope: ok yields
// the payload, error yields the daemon's message as an error.
func (c *Client) call(cmd protocol.Command, payload any) (json.RawMessage, error) {
	respCmd, respPayload, err := c.roundTrip(cmd, payload)
	if err != nil {
		return nil, err
	}

	switch respCmd {
	case protocol.CmdOK:
		return respPayload, nil

	case protocol.CmdError:
		res, err := protocol.DecodePayload[protocol.ErrorResult](respPayload)
		if err != nil {
			return nil, errs.Wrapf(ErrRemote, "daemon reported an unreadable error")
		}
		return nil, errs.Wrapf(ErrRemote, "%s", res.Message)

	default:
		return nil, errs.Wrapf(ErrRemote, "unexpected response %q", respCmd)
	}
}

// Dials the daemon, writes one envelope, and reads one back.
func (c *Client) roundTrip(cmd protocol.Command, payload any) (protocol.Command, json.RawMessage, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, dialTimeout)
	if err != nil {
		return "", nil, errs.Wrapf(ErrDaemon, "dial %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	data, err := protocol.Encode(cmd, payload)
	if err != nil {
		return "", nil, err
	}
	data = append(data, byte(10))

	if _, err := conn.Write(data); err != nil {
		return "", nil, errs.Wrap(ErrDaemon, err)
	}

	line, err := bufio.NewReader(conn).ReadBytes(byte(10))
	if err != nil {
		return "", nil, errs.Wrap(ErrDaemon, err)
	}

	env, respPayload, err := protocol.Decode(line)
	if err != nil {
		return "", nil, err
	}

	return env.Command, respPayload, nil
}
