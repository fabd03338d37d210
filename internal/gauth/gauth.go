// Package gauth loads Google service-account credentials for the Drive and
// Earth Engine clients.
package gauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// ErrAccountMismatch is returned when the key file belongs to a different
// service account than the configured one.
var ErrAccountMismatch = errors.New("gauth: service account mismatch")

// OAuth scopes requested by the pipeline.
const (
	ScopeDrive         = "https://www.googleapis.com/auth/drive"
	ScopeEarthEngine   = "https://www.googleapis.com/auth/earthengine"
	ScopeCloudPlatform = "https://www.googleapis.com/auth/cloud-platform"
)

// DefaultScopes covers folder draining and export submission.
var DefaultScopes = []string{ScopeDrive, ScopeEarthEngine, ScopeCloudPlatform}

// Load reads credentials from keyFile. An empty keyFile falls back to
// application default credentials.
func Load(ctx context.Context, keyFile string, scopes ...string) (*google.Credentials, error) {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	if keyFile == "" {
		creds, err := google.FindDefaultCredentials(ctx, scopes...)
		if err != nil {
			return nil, fmt.Errorf("find default credentials: %w", err)
		}
		return creds, nil
	}

	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse key file %s: %w", keyFile, err)
	}
	return creds, nil
}

// CheckAccount verifies that creds belong to account, the service-account
// email named in the config. An empty account or credentials without a
// client_email, such as those from the metadata server, pass.
func CheckAccount(creds *google.Credentials, account string) error {
	if account == "" || creds == nil || len(creds.JSON) == 0 {
		return nil
	}
	var key struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(creds.JSON, &key); err != nil {
		return fmt.Errorf("parse credentials: %w", err)
	}
	if key.ClientEmail != "" && !strings.EqualFold(key.ClientEmail, account) {
		return fmt.Errorf("%w: key file is for %s, config names %s", ErrAccountMismatch, key.ClientEmail, account)
	}
	return nil
}

// ClientOptions returns the API client options for creds.
func ClientOptions(creds *google.Credentials) []option.ClientOption {
	if creds == nil {
		return nil
	}
	return []option.ClientOption{option.WithCredentials(creds)}
}
