// Package oauthx defines the OAuth code-exchange collaborator for the
// document-hosting provider.
package oauthx

import (
	"context"
	"errors"
	"time"
)

var ErrNotConfigured = errors.New("oauth provider not configured")

type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type Exchanger interface {
	Exchange(ctx context.Context, code string) (*Credentials, error)
}

// DevExchanger rejects every exchange; wired when no provider is set up.
type DevExchanger struct{}

func NewDevExchanger() *DevExchanger {
	return &DevExchanger{}
}

func (d *DevExchanger) Exchange(ctx context.Context, code string) (*Credentials, error) {
	return nil, ErrNotConfigured
}
