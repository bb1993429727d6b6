package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand_Kinds(t *testing.T) {
	cases := []struct {
		raw  string
		want Command
	}{
		{`{"type":"join","id":"p1","name":" Alice "}`, Join{ID: "p1", Name: "Alice"}},
		{`{"type":"select_mode","id":"p1","mode":"pvp"}`, SelectMode{ID: "p1", Mode: "pvp"}},
		{`{"type":"toggle_ready","id":"p1"}`, ToggleReady{ID: "p1"}},
		{`{"type":"bet","id":"p1","amount":200}`, PlaceBet{ID: "p1", Amount: 200}},
		{`{"type":"bet","id":"p1","amount":"150"}`, PlaceBet{ID: "p1", Amount: 150}},
		{`{"type":"bet","id":"p1","amount":-5}`, PlaceBet{ID: "p1", Amount: -5}},
		{`{"type":"clear_bet","id":"p1"}`, ClearBet{ID: "p1"}},
		{`{"type":"start","id":"p1"}`, Start{ID: "p1"}},
		{`{"type":"ping"}`, Ping{}},
		{
			`{"type":"admin_command","id":"root","command":"set_balance","data":{"targetId":"p1","amount":50}}`,
			AdminCommand{ID: "root", Command: "set_balance", Data: AdminData{TargetID: "p1", Amount: 50}},
		},
	}
	for _, tc := range cases {
		got, err := DecodeCommand([]byte(tc.raw))
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestDecodeCommand_ParseErrors(t *testing.T) {
	bad := []string{
		`not json`,
		`{"id":"p1"}`,
		`{"type":"teleport","id":"p1"}`,
		`{"type":"bet","amount":10}`,
		`{"type":"bet","id":"p1"}`,
		`{"type":"bet","id":"p1","amount":"ten"}`,
		`{"type":"bet","id":"p1","amount":10.5}`,
		`{"type":"join","id":"p1"}`,
		`{"type":"select_mode","id":"p1"}`,
		`{"type":"admin_command","id":"root"}`,
		`{"type":"admin_command","id":"root","command":"kick","data":"oops"}`,
	}
	for _, raw := range bad {
		_, err := DecodeCommand([]byte(raw))
		require.Error(t, err, raw)
		var pe *ParseError
		assert.True(t, errors.As(err, &pe), raw)
	}
}
