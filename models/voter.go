package models

import "time"

// Voter is a registered voter; the mobile number is only used to deliver the
// voter ID.
type Voter struct {
	VoterID   string    `json:"voterId"`
	Name      string    `json:"name"`
	Mobile    string    `json:"mobile"`
	CreatedAt time.Time `json:"createdAt"`
}
