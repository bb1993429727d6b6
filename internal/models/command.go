// internal/models/command.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CommandType is the "type" field of an inbound message.
type CommandType string

const (
	CmdJoin         CommandType = "join"
	CmdSelectMode   CommandType = "select_mode"
	CmdToggleReady  CommandType = "toggle_ready"
	CmdBet          CommandType = "bet"
	CmdClearBet     CommandType = "clear_bet"
	CmdStart        CommandType = "start"
	CmdAdminCommand CommandType = "admin_command"
	CmdPing         CommandType = "ping"
)

// Command is a decoded inbound message. The concrete types below are the only
// implementations.
type Command interface {
	Kind() CommandType
}

type Join struct {
	ID   string
	Name string
}

type SelectMode struct {
	ID   string
	Mode string
}

type ToggleReady struct {
	ID string
}

type PlaceBet struct {
	ID     string
	Amount int64
}

type ClearBet struct {
	ID string
}

type Start struct {
	ID string
}

type AdminCommand struct {
	ID      string
	Command string
	Data    AdminData
}

type Ping struct{}

func (Join) Kind() CommandType         { return CmdJoin }
func (SelectMode) Kind() CommandType   { return CmdSelectMode }
func (ToggleReady) Kind() CommandType  { return CmdToggleReady }
func (PlaceBet) Kind() CommandType     { return CmdBet }
func (ClearBet) Kind() CommandType     { return CmdClearBet }
func (Start) Kind() CommandType        { return CmdStart }
func (AdminCommand) Kind() CommandType { return CmdAdminCommand }
func (Ping) Kind() CommandType         { return CmdPing }

// AdminData is the payload of an admin_command.
type AdminData struct {
	TargetID   string  `json:"targetId"`
	Amount     int64   `json:"amount"`
	Multiplier float64 `json:"multiplier"`
	Lobby      string  `json:"lobby"`
}

// ParseError reports a malformed inbound message. These are logged and dropped.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Reason, e.Err)
	}
	return "parse error: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// envelope is the wire shape shared by all inbound messages.
type envelope struct {
	Type    CommandType     `json:"type"`
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Mode    string          `json:"mode"`
	Amount  json.RawMessage `json:"amount"`
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data"`
}

// DecodeCommand parses a raw JSON message into a typed Command.
func DecodeCommand(raw []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &ParseError{Reason: "invalid json", Err: err}
	}

	if env.Type == CmdPing {
		return Ping{}, nil
	}
	if env.Type == "" {
		return nil, &ParseError{Reason: "missing type"}
	}
	if strings.TrimSpace(env.ID) == "" {
		return nil, &ParseError{Reason: fmt.Sprintf("%s: missing id", env.Type)}
	}

	switch env.Type {
	case CmdJoin:
		name := strings.TrimSpace(env.Name)
		if name == "" {
			return nil, &ParseError{Reason: "join: missing name"}
		}
		return Join{ID: env.ID, Name: name}, nil
	case CmdSelectMode:
		if env.Mode == "" {
			return nil, &ParseError{Reason: "select_mode: missing mode"}
		}
		return SelectMode{ID: env.ID, Mode: env.Mode}, nil
	case CmdToggleReady:
		return ToggleReady{ID: env.ID}, nil
	case CmdBet:
		amount, err := parseAmount(env.Amount)
		if err != nil {
			return nil, &ParseError{Reason: "bet: bad amount", Err: err}
		}
		return PlaceBet{ID: env.ID, Amount: amount}, nil
	case CmdClearBet:
		return ClearBet{ID: env.ID}, nil
	case CmdStart:
		return Start{ID: env.ID}, nil
	case CmdAdminCommand:
		if env.Command == "" {
			return nil, &ParseError{Reason: "admin_command: missing command"}
		}
		var data AdminData
		if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
			if err := json.Unmarshal(env.Data, &data); err != nil {
				return nil, &ParseError{Reason: "admin_command: bad data", Err: err}
			}
		}
		return AdminCommand{ID: env.ID, Command: env.Command, Data: data}, nil
	default:
		return nil, &ParseError{Reason: fmt.Sprintf("unknown type %q", env.Type)}
	}
}

// parseAmount accepts a JSON number or a numeric string. Fractions are rejected.
func parseAmount(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("missing")
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("amount %v is not a whole number", f)
	}
	return int64(f), nil
}
