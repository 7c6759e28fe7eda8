package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
)

const oauthClientBaseName = "cascade_oauth_client"

// OAuthClientConfig is the client secrets JSON downloaded from the Google Cloud console.
// Desktop clients carry an "installed" section, web clients a "web" section.
type OAuthClientConfig struct {
	Installed *OAuthClientSecrets `json:"installed,omitempty"`
	Web       *OAuthClientSecrets `json:"web,omitempty"`
}

// OAuthClientSecrets is one section of the client secrets file
type OAuthClientSecrets struct {
	ClientID     string   `json:"client_id" validate:"required"`
	ClientSecret string   `json:"client_secret" validate:"required"`
	ProjectID    string   `json:"project_id,omitempty"`
	AuthURI      string   `json:"auth_uri" validate:"required,url"`
	TokenURI     string   `json:"token_uri" validate:"required,url"`
	RedirectURIs []string `json:"redirect_uris" validate:"required,min=1,dive,url"`
}

// Secrets returns whichever section is present
func (c *OAuthClientConfig) Secrets() *OAuthClientSecrets {
	if c.Installed != nil {
		return c.Installed
	}
	return c.Web
}

// LoadOAuthClientWithEnv loads cascade_oauth_client[.env].json from the current directory,
// falling back to the home directory
func LoadOAuthClientWithEnv(env string) (*OAuthClientConfig, error) {
	path, err := findInSearchPath(envFileName(oauthClientBaseName, env, ".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to find oauth client file: %w", err)
	}

	return LoadOAuthClientFromPath(path)
}

func LoadOAuthClientFromPath(path string) (*OAuthClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth client file: %w", err)
	}

	var cfg OAuthClientConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse oauth client file %s: %w", path, err)
	}

	if err := ValidateOAuthClient(&cfg); err != nil {
		return nil, fmt.Errorf("invalid oauth client file %s: %w", path, err)
	}

	return &cfg, nil
}

// ValidateOAuthClient checks that exactly one section is present and that it can complete
// the browser sign-in, which redirects back to a loopback address
func ValidateOAuthClient(cfg *OAuthClientConfig) error {
	if (cfg.Installed == nil) == (cfg.Web == nil) {
		return errors.New("oauth client validation failed: expected exactly one of installed or web")
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("oauth client validation failed: %w", err)
	}
	if !slices.ContainsFunc(cfg.Secrets().RedirectURIs, isLoopbackURI) {
		return errors.New("oauth client validation failed: no localhost redirect URI for the sign-in callback")
	}
	return nil
}

func isLoopbackURI(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
