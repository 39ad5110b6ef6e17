// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identity resolves a curator's ORCID identity through the ORCID
// OAuth authorization code flow.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/pdiddy/sieve/internal/httputil"
	"github.com/pdiddy/sieve/internal/logging"
	"github.com/pdiddy/sieve/pkg/types"
)

// ORCID OAuth endpoints.
var (
	SandboxEndpoint = oauth2.Endpoint{
		AuthURL:   "https://sandbox.orcid.org/oauth/authorize",
		TokenURL:  "https://sandbox.orcid.org/oauth/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	ProductionEndpoint = oauth2.Endpoint{
		AuthURL:   "https://orcid.org/oauth/authorize",
		TokenURL:  "https://orcid.org/oauth/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
)

// ScopeAuthenticate only proves who the user is.
const ScopeAuthenticate = "/authenticate"

var (
	ErrNotConfigured = errors.New("ORCID client id and secret are not configured")
	ErrNoIdentity    = errors.New("token response carries no ORCID id")
)

// Identity is an authenticated curator.
type Identity struct {
	// ORCID is prefixed, e.g. "orcid:0000-0002-5002-8648".
	ORCID string `json:"orcid"`
	Name  string `json:"name,omitempty"`
}

// Bare returns the ORCID without prefix.
func (i Identity) Bare() string { return types.NormalizeORCID(i.ORCID) }

// Client performs the ORCID OAuth exchange.
type Client struct {
	conf *oauth2.Config
	http *http.Client
	log  *logging.Logger
}

// New creates a Client. Requests to the token endpoint retry on 429.
func New(cfg types.IdentityConfig, log *logging.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrNotConfigured
	}
	if log == nil {
		log = logging.Nop()
	}
	endpoint := ProductionEndpoint
	if cfg.Sandbox {
		endpoint = SandboxEndpoint
	}
	return &Client{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{ScopeAuthenticate},
		},
		http: httputil.NewClient(cfg.MaxRetries, 30*time.Second, log),
		log:  log,
	}, nil
}

// WithEndpoint replaces the OAuth endpoint.
func (c *Client) WithEndpoint(e oauth2.Endpoint) *Client {
	c.conf.Endpoint = e
	return c
}

// AuthCodeURL returns the URL a curator visits to sign in.
func (c *Client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state)
}

// Exchange trades an authorization code for the curator's identity. ORCID
// returns the id and display name alongside the access token.
func (c *Client) Exchange(ctx context.Context, code string) (Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("exchanging ORCID code: %w", err)
	}

	id, _ := tok.Extra("orcid").(string)
	id = types.NormalizeORCID(id)
	if id == "" {
		return Identity{}, ErrNoIdentity
	}
	name, _ := tok.Extra("name").(string)

	ident := Identity{ORCID: "orcid:" + id, Name: name}
	c.log.Info("curator signed in", "orcid", ident.ORCID, "name", ident.Name)
	return ident, nil
}
