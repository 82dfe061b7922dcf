package sim

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/netfabrik/netsim/topology"
)

// Command is the typed control-plane command set. Anything the wire decoder
// cannot map onto one of these is CmdUnknown and answered with an error
// object rather than an aborted connection.
type Command int

const (
	CmdUnknown Command = iota
	CmdStatus
	CmdPause
	CmdResume
	CmdStats
	CmdLinks
)

// String returns the wire name of the command. CmdUnknown maps to "unknown",
// which is also the metrics label used for unparseable requests.
func (c Command) String() string {
	switch c {
	case CmdStatus:
		return "status"
	case CmdPause:
		return "pause"
	case CmdResume:
		return "resume"
	case CmdStats:
		return "stats"
	case CmdLinks:
		return "links"
	default:
		return "unknown"
	}
}

func commandFromName(name string) Command {
	switch strings.TrimSpace(name) {
	case "status":
		return CmdStatus
	case "pause":
		return CmdPause
	case "resume":
		return CmdResume
	case "stats":
		return CmdStats
	case "links":
		return CmdLinks
	default:
		return CmdUnknown
	}
}

// ParseCommand decodes one control request. The preferred form is a JSON
// object with a "cmd" field; raw bytes that fail to decode are treated as a
// bare command name.
func ParseCommand(raw []byte) Command {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return CmdUnknown
	}

	var req struct {
		Cmd string `json:"cmd"`
	}
	if err := json.Unmarshal(raw, &req); err == nil {
		return commandFromName(req.Cmd)
	}

	// Also accept a JSON-encoded bare string.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return commandFromName(s)
	}

	return commandFromName(string(raw))
}

// Wire response shapes, one per command.

type statusResponse struct {
	Status string   `json:"status"`
	Nodes  []string `json:"nodes"`
}

type pauseResponse struct {
	Status string `json:"status"`
}

type statsResponse struct {
	Stats map[string]Counters `json:"stats"`
}

type linksResponse struct {
	Links []topology.EdgeView `json:"links"`
}

type errorResponse struct {
	Error string `json:"error"`
}
