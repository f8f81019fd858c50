package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypePing = "ping"

	// Server -> Client
	TypeLeaderboardUpdate = "leaderboard_update"
	TypeError             = "error"
	TypePong              = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// LeaderboardUpdatePayload is pushed to every watcher after a submission
// changes the standings.
type LeaderboardUpdatePayload struct {
	Timeframe   string             `json:"timeframe"`
	SortBy      string             `json:"sortBy"`
	Top         []LeaderboardEntry `json:"top"`
	GeneratedAt string             `json:"generatedAt"`
}

// LeaderboardEntry is the wire form of a ranked row. Percentages are rounded
// to two decimals.
type LeaderboardEntry struct {
	Rank              int     `json:"rank"`
	UserID            string  `json:"userId"`
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	TotalQuizzes      int     `json:"totalQuizzes"`
	TotalScore        int     `json:"totalScore"`
	TotalQuestions    int     `json:"totalQuestions"`
	AveragePercentage float64 `json:"averagePercentage"`
	HighestPercentage float64 `json:"highestPercentage"`
}

// ErrorPayload describes a protocol error sent to the client.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Payload = raw
	return msg, nil
}
