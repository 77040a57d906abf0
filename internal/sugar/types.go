package sugar

import "time"

// Package is the server's view of an installed or staged module package.
type Package struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
	// StagedFileID identifies an uploaded but not installed archive. Only
	// staged listings carry it.
	StagedFileID string `json:"unFile,omitempty"`
}

// TokenStore caches access tokens between invocations.
type TokenStore interface {
	Get(key string) (string, bool)
	Put(key, token string, ttl time.Duration) error
	Delete(key string) error
}

// Config holds what a Client needs to reach one instance.
type Config struct {
	InstanceURL string
	Username    string
	Password    string
	Platform    string
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	Platform     string `json:"platform"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type packageList struct {
	Packages []Package `json:"packages"`
}

type uploadResponse struct {
	FileInstall string `json:"file_install"`
}

type errorBody struct {
	ErrorDescription string `json:"error_description"`
	ErrorMessage     string `json:"error_message"`
}
