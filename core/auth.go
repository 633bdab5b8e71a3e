package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// Account is a wallet address as reported by the provider ("0x" + 40 hex chars)
type Account string

// Challenge is the server-issued login message a wallet signs
type Challenge string

// Signature is the hex signature returned by the provider
type Signature string

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// IsValidAddress reports whether address has the "0x" + 40 hex chars shape.
// The login flow itself never calls this; accounts are opaque to it.
func IsValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}

// IssuedChallenge is the server-side record of a login message
type IssuedChallenge struct {
	Nonce     string    // Random nonce embedded in the message
	Message   Challenge // Text the wallet signs
	IssuedAt  time.Time // When the message was created
	ExpiresAt time.Time // When the message stops being accepted
}

// Session represents an authenticated server session backing an access token
type Session struct {
	ID        string    // Unique session identifier, used as the token ID
	UserID    string    // Owning user
	Address   string    // Ethereum address of the user
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the access token expires
}

// User is the account record the server returns as the login payload
type User struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"walletAddress"`
	Username      string    `json:"username"`
	Email         string    `json:"email,omitempty"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UnmarshalJSON accepts the id as a JSON string or number; servers differ.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	aux := struct {
		ID json.RawMessage `json:"id"`
		*plain
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	id := bytes.TrimSpace(aux.ID)
	switch {
	case len(id) == 0 || string(id) == "null":
		u.ID = ""
	case id[0] == '"':
		return json.Unmarshal(id, &u.ID)
	default:
		var n json.Number
		if err := json.Unmarshal(id, &n); err != nil {
			return fmt.Errorf("invalid user id %s: %w", id, err)
		}
		u.ID = n.String()
	}
	return nil
}

// WalletLogin is the body posted to the wallet login endpoint
type WalletLogin struct {
	WalletAddress Account   `json:"walletAddress"`
	Signature     Signature `json:"signature"`
	Message       Challenge `json:"message"`
}

// WalletRegistration is the body posted to the wallet registration endpoint
type WalletRegistration struct {
	WalletLogin
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// ClientSession is what a client keeps after a successful login.
// Data holds the server's data payload exactly as received.
type ClientSession struct {
	Account   Account         `json:"account"`
	Data      json.RawMessage `json:"data"`
	Token     string          `json:"token,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// User decodes the session payload as a User
func (s *ClientSession) User() (User, error) {
	var user User
	if err := json.Unmarshal(s.Data, &user); err != nil {
		return User{}, err
	}
	return user, nil
}
