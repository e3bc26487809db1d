// Package notify delivers voter notifications over SMS.
package notify

import (
	"context"
	"fmt"
	"strings"
)

// DefaultCountryCode is prefixed to numbers given without one.
const DefaultCountryCode = "+91"

// Delivery methods
const (
	MethodTwilio = "twilio"
	MethodMock   = "mock"
)

// Delivery describes an accepted message.
type Delivery struct {
	Method string `json:"method"`
	SID    string `json:"sid,omitempty"`
	To     string `json:"to"`
}

//go:generate mockgen -destination=../mocks/gateway.go -package=mocks voting-ledger/notify Gateway

// Gateway sends a text message to a phone number.
type Gateway interface {
	Send(ctx context.Context, to string, body string) (*Delivery, error)
	Name() string
}

// VoterIDMessage is the body of the voter ID notification.
func VoterIDMessage(voterID string) string {
	return fmt.Sprintf("Your Voter ID is: %s. Please keep this safe for voting.", voterID)
}

// FormatNumber prefixes a local mobile number with countryCode. Numbers that
// already start with "+" are returned as given.
func FormatNumber(countryCode string, mobile string) string {
	mobile = strings.TrimSpace(mobile)
	if strings.HasPrefix(mobile, "+") {
		return mobile
	}
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	if !strings.HasPrefix(countryCode, "+") {
		countryCode = "+" + countryCode
	}
	return countryCode + mobile
}
