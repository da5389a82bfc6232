package model

import "time"

// SubscriptionRecord is a subscriber who holds a provisioned VPN resource.
type SubscriptionRecord struct {
	SubjectID        int64 // Telegram user id
	ServerID         *int64
	ResourceAssigned bool
}

// ClientData is what is known about a subscriber's resource on the VPN server.
type ClientData struct {
	SubjectID int64
	Devices   int
	ExpiresAt *time.Time // nil means unlimited
}

// Unlimited reports the "never expires" sentinel.
func (c *ClientData) Unlimited() bool { return c == nil || c.ExpiresAt == nil }

// Expired reports whether the resource has already run out at now.
func (c *ClientData) Expired(now time.Time) bool {
	if c.Unlimited() {
		return false
	}
	return !c.ExpiresAt.After(now)
}

// Server is a VPN node subscribers are provisioned on.
type Server struct {
	ID             int64
	Name           string
	Host           string
	MaxClients     int
	CurrentClients int
	Online         bool
}

// HasCapacity reports whether the server can take one more client.
func (s *Server) HasCapacity() bool {
	return s != nil && s.Online && s.CurrentClients < s.MaxClients
}
