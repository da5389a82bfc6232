package model

import (
	"crypto/rand"
	"io"
	"time"

	"vpn-subscription-bot/internal/domain"
)

// Promocode grants a subscription of DurationDays when activated.
type Promocode struct {
	ID           string
	Code         string
	DurationDays int
	IsActivated  bool
	ActivatedBy  *int64
	CreatedAt    time.Time
}

// Editable reports whether admins may still change the promocode.
func (p *Promocode) Editable() bool { return p != nil && !p.IsActivated }

// NewPromocode validates and builds an unactivated promocode with a fresh code.
func NewPromocode(id string, durationDays int) (*Promocode, error) {
	if id == "" || durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	code, err := GeneratePromocode()
	if err != nil {
		return nil, err
	}
	return &Promocode{
		ID:           id,
		Code:         code,
		DurationDays: durationDays,
		CreatedAt:    time.Now(),
	}, nil
}

// GeneratePromocode creates a random human-readable code of 8 characters,
// avoiding ambiguous characters like O/0 and I/1.
func GeneratePromocode() (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLength = 8

	buffer := make([]byte, codeLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	for i := 0; i < codeLength; i++ {
		buffer[i] = chars[int(buffer[i])%len(chars)]
	}
	return string(buffer), nil
}
