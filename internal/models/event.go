// internal/models/event.go
package models

// EventType is the "type" field of every outbound message.
type EventType string

const (
	EventInit          EventType = "init"
	EventState         EventType = "state"
	EventRoundStart    EventType = "round_start"
	EventRoundEnd      EventType = "round_end"
	EventModeChanged   EventType = "mode_changed"
	EventLobbyReady    EventType = "lobby_ready"
	EventError         EventType = "error"
	EventAdminResponse EventType = "admin_response"
	EventPong          EventType = "pong"
)

// PlayerView is one row of a lobby snapshot.
type PlayerView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Bet     int64  `json:"bet"`
	Balance int64  `json:"balance"`
	// Chance is the bet share of the bank in percent, rounded to one decimal.
	Chance float64 `json:"chance"`
	IsBot  bool    `json:"isBot"`
	Ready  bool    `json:"ready"`
	Online bool    `json:"online"`
}

// Sector is a slice of the round wheel, proportional to a participant's bet.
type Sector struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Share float64 `json:"share"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Event holds data about an outbound message in a consistent format.
// Only the fields relevant to Type are populated.
type Event struct {
	Type  EventType `json:"type"`
	Lobby string    `json:"lobby,omitempty"`

	// init
	You   *PlayerView `json:"you,omitempty"`
	Modes []string    `json:"modes,omitempty"`

	// state / init
	Players     []PlayerView `json:"players,omitempty"`
	TotalBank   *int64       `json:"totalBank,omitempty"`
	RoundActive *bool        `json:"roundActive,omitempty"`

	// round_start / lobby_ready
	Time    int      `json:"time,omitempty"`
	Sectors []Sector `json:"sectors,omitempty"`

	// round_end
	WinnerID   string     `json:"winnerId,omitempty"`
	WinnerName string     `json:"winnerName,omitempty"`
	WinAmount  int64      `json:"winAmount,omitempty"`
	Stats      *GameStats `json:"stats,omitempty"`

	// mode_changed
	Mode string `json:"mode,omitempty"`

	// error / admin_response
	Message string      `json:"message,omitempty"`
	Command string      `json:"command,omitempty"`
	Success *bool       `json:"success,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorEvent builds an "error" message with a human-readable reason.
func ErrorEvent(msg string) Event {
	return Event{Type: EventError, Message: msg}
}

// AdminResponse builds an "admin_response" message.
func AdminResponse(command string, success bool, msg string, data interface{}) Event {
	return Event{
		Type:    EventAdminResponse,
		Command: command,
		Success: &success,
		Message: msg,
		Data:    data,
	}
}
