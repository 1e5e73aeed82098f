package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrWrongEvent is returned for a well-signed ticket issued for another event.
var ErrWrongEvent = errors.New("ticket was issued for a different event")

// TicketClaims is the payload encoded in a participant's entry QR code.
type TicketClaims struct {
	ParticipantID int64  `json:"pid"`
	Event         string `json:"event"`
	jwt.RegisteredClaims
}

// TicketSigner issues and checks entry tickets. Tickets do not expire; the
// payment status is re-checked on every scan.
type TicketSigner struct {
	secretKey string
	event     string
}

// NewTicketSigner creates a signer bound to one event name
func NewTicketSigner(secretKey, event string) *TicketSigner {
	return &TicketSigner{secretKey: secretKey, event: event}
}

// Issue returns the signed QR payload for a participant
func (ts *TicketSigner) Issue(participantID int64) (string, error) {
	claims := &TicketClaims{
		ParticipantID: participantID,
		Event:         ts.event,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
			Subject:  strconv.FormatInt(participantID, 10),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(ts.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign ticket: %w", err)
	}
	return signed, nil
}

// Verify parses a scanned payload and returns the participant it was issued to
func (ts *TicketSigner) Verify(payload string) (int64, error) {
	claims := &TicketClaims{}
	token, err := jwt.ParseWithClaims(payload, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(ts.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, fmt.Errorf("failed to parse ticket: %w", err)
	}
	if !token.Valid || claims.ParticipantID <= 0 {
		return 0, fmt.Errorf("invalid ticket")
	}
	if claims.Event != ts.event {
		return 0, ErrWrongEvent
	}
	return claims.ParticipantID, nil
}
