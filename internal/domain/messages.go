package domain

import "encoding/json"

// Fixed room names. Rooms are created on demand by the hub; these are
// the names the server broadcasts to.
const (
	RoomProjects     = "projects"
	RoomSkills       = "skills"
	RoomAbout        = "about"
	RoomContact      = "contact"
	RoomCertificates = "certificates"
	RoomAdmin        = "admin"
	RoomVisitors     = "visitors"
)

// Inbound message types (client to server).
const (
	MsgTypeJoin  = "join"
	MsgTypeLeave = "leave"
	MsgTypePing  = "ping"
	MsgTypePong  = "pong"
)

// Error codes sent back on malformed frames.
const (
	ErrCodeBadRequest = "BAD_REQUEST"
)

// ClientMessage is the envelope for inbound WebSocket frames.
type ClientMessage struct {
	Type  string   `json:"type"`
	Rooms RoomList `json:"rooms,omitempty"`
}

// RoomList accepts either a single room name or an array of names,
// so clients can batch their joins in one frame.
type RoomList []string

func (r *RoomList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*r = RoomList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*r = RoomList(many)
	return nil
}

// Event is the envelope for outbound WebSocket frames.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// ErrorMessage is sent to a client when an inbound frame cannot be
// handled. The connection stays open.
type ErrorMessage struct {
	Event string `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// NewErrorMessage builds an error frame.
func NewErrorMessage(code, msg string) ErrorMessage {
	return ErrorMessage{Event: "error", Code: code, Error: msg}
}

// AdminNotification is the toast-style payload broadcast to the admin
// room alongside content mutations.
type AdminNotification struct {
	Type    string `json:"type"`
	Action  string `json:"action"`
	Message string `json:"message"`
}

// VisitorCount is broadcast to the visitors room whenever a connection
// opens or closes.
type VisitorCount struct {
	Count int `json:"count"`
}
