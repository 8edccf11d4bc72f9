// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	ferr "seedfast/forcebridge/internal/errors"
	"seedfast/forcebridge/internal/logging"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// jwtLifetime is how long a signed assertion stays valid. The token endpoint
// only needs it for the exchange itself.
const jwtLifetime = 3 * time.Minute

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
}

// Login exchanges the configured credentials for a session. Any failure is an
// Authentication error; credentials never appear in the error text.
func (h *HTTP) Login(ctx context.Context) (Session, error) {
	form, err := h.grant()
	if err != nil {
		return Session{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.creds.LoginURL+"/services/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, ferr.Wrap(ferr.Authentication, "build login request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set("X-Request-Id", reqID)

	data, err := h.send(req, "login", reqID)
	if err != nil {
		return Session{}, ferr.Wrap(ferr.Authentication, "login failed", unwrapAPI(err))
	}

	var tok tokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		return Session{}, ferr.Wrap(ferr.Authentication, "login failed", violation("login", "decode token response: %v", err))
	}
	if tok.AccessToken == "" || tok.InstanceURL == "" {
		return Session{}, ferr.Wrap(ferr.Authentication, "login failed", violation("login", "token response without access_token or instance_url"))
	}
	return Session{Token: tok.AccessToken, InstanceURL: tok.InstanceURL, AcquiredAt: h.now()}, nil
}

// grant builds the token request form for the configured flow.
func (h *HTTP) grant() (url.Values, error) {
	c := h.creds
	if c.Username == "" {
		return nil, ferr.New(ferr.Configuration, "username is required")
	}
	if c.ClientID == "" {
		return nil, ferr.New(ferr.Configuration, "client_id is required")
	}

	form := url.Values{}
	form.Set("client_id", c.ClientID)
	if len(c.JWTKey) > 0 {
		assertion, err := h.signAssertion()
		if err != nil {
			return nil, err
		}
		form.Set("grant_type", jwtBearerGrant)
		form.Set("assertion", assertion)
		return form, nil
	}

	form.Set("grant_type", "password")
	form.Set("username", c.Username)
	// the API expects the security token appended to the password
	form.Set("password", c.Password+c.SecurityToken)
	if c.ClientSecret != "" {
		form.Set("client_secret", c.ClientSecret)
	}
	return form, nil
}

func (h *HTTP) signAssertion() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(h.creds.JWTKey)
	if err != nil {
		return "", ferr.Wrap(ferr.Configuration, "jwt_key_file is not a PEM RSA private key", err)
	}
	now := h.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    h.creds.ClientID,
		Subject:   h.creds.Username,
		Audience:  jwt.ClaimStrings{h.creds.LoginURL},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(jwtLifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", ferr.Wrap(ferr.Authentication, "sign login assertion", err)
	}
	return signed, nil
}

// unwrapAPI strips the Transport/Authentication wrapper send adds so the login
// error reads "authentication: login failed: remote API returned 400 ...".
func unwrapAPI(err error) error {
	if e, ok := err.(*ferr.E); ok && e.Err != nil {
		return e.Err
	}
	return errors.New(logging.Mask(err.Error()))
}
