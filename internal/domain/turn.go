package domain

import "time"

// Turn is one entry of the conversational drawing history sent to the
// completion endpoint as context. The log is append-only.
type Turn struct {
	Who         Origin    `json:"who"`
	Description string    `json:"description,omitempty"`
	At          time.Time `json:"at"`
}
