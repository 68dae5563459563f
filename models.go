package main

// Profile holds the self-declared matching preferences a client submits
// with find_partner. The last submitted profile is kept on the connection
// so a requeue can re-run matching without resubmission.
type Profile struct {
	University string   `json:"university"`
	Interests  []string `json:"interests"`
}

// Participant is the per-member view embedded in a match_found event.
type Participant struct {
	ID         string   `json:"id"`
	University string   `json:"university"`
	Interests  []string `json:"interests"`
}

// MatchFound announces a new room to both members.
type MatchFound struct {
	RoomID          string      `json:"roomId"`
	You             Participant `json:"you"`
	Partner         Participant `json:"partner"`
	CommonInterests []string    `json:"commonInterests"`
}

// SessionEnded tells a room member the session is over. CanRequeue is true
// when the member still has a saved profile to requeue with.
type SessionEnded struct {
	Reason     string `json:"reason"`
	CanRequeue bool   `json:"canRequeue"`
}

// Session end reasons.
const (
	ReasonEnded      = "ended"      // superseded by a new pairing
	ReasonSkip       = "skip"       // voluntary, invoker may requeue
	ReasonLeft       = "left"       // voluntary, full exit
	ReasonDisconnect = "disconnect" // involuntary
)

// ChatMessage is a relayed chat line. Ts is unix milliseconds.
type ChatMessage struct {
	From string `json:"from"`
	Text string `json:"text"`
	Ts   int64  `json:"ts"`
}

// TypingNotice is relayed to the other room member only, never echoed.
type TypingNotice struct {
	From  string `json:"from"`
	State bool   `json:"state"`
}
