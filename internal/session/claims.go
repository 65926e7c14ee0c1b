package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access-token fields the tracker relies on. The LMS signs
// tokens with a key the client never sees, so they are read without
// verification and only used to label the local session.
type Claims struct {
	jwt.RegisteredClaims
	UserID         string `json:"userId,omitempty"`
	Email          string `json:"email,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`
	Role           string `json:"role,omitempty"`
}

// ParseClaims decodes token without checking its signature.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// LearnerID returns the learner ID, preferring the explicit userId claim.
func (c *Claims) LearnerID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}
