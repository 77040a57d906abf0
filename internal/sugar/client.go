// Package sugar is a client for the package-management endpoints of a
// SugarCRM instance's REST API.
package sugar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	apiPrefix   = "/rest/v11"
	packagesAPI = "/Administration/packages"

	// clientID is the public OAuth client every Sugar instance ships with.
	clientID = "sugar"

	tokenHeader   = "OAuth-Token"
	tokenCacheKey = "sugarcrm_token"

	// DefaultPlatform is sent when a profile does not name one.
	DefaultPlatform = "base"

	maxResponseBytes = 10 << 20
)

// Client talks to one instance. It is not safe for concurrent use.
type Client struct {
	cfg        Config
	baseURL    string
	cacheKey   string
	tokens     TokenStore
	httpClient *http.Client
	logger     *log.Logger
}

// ClientOption configures a Client during construction.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient builds a Client for cfg. Tokens are read from and written to tokens.
func NewClient(cfg Config, tokens TokenStore, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(cfg.InstanceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid instance url %q", cfg.InstanceURL)
	}
	if cfg.Platform == "" {
		cfg.Platform = DefaultPlatform
	}

	c := &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.InstanceURL, "/"),
		cacheKey:   CacheKey(u),
		tokens:     tokens,
		httpClient: &http.Client{},
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CacheKey is the token cache key for the instance at u.
func CacheKey(u *url.URL) string {
	return tokenCacheKey + ":" + u.Host
}

// AccessToken returns a cached token when one is still valid, otherwise it
// performs a password grant and caches the result.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.tokens != nil {
		if token, ok := c.tokens.Get(c.cacheKey); ok {
			c.logger.Debug("using cached access token", "key", c.cacheKey)
			return token, nil
		}
	}

	token, ttl, err := c.requestToken(ctx)
	if err != nil {
		return "", err
	}

	if c.tokens != nil {
		if err := c.tokens.Put(c.cacheKey, token, ttl); err != nil {
			c.logger.Warn("could not cache access token", "err", err)
		}
	}
	return token, nil
}

func (c *Client) requestToken(ctx context.Context) (string, time.Duration, error) {
	payload, err := json.Marshal(tokenRequest{
		GrantType:    "password",
		ClientID:     clientID,
		ClientSecret: "",
		Username:     c.cfg.Username,
		Password:     c.cfg.Password,
		Platform:     c.cfg.Platform,
	})
	if err != nil {
		return "", 0, &AuthenticationError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+"/oauth2/token", bytes.NewReader(payload))
	if err != nil {
		return "", 0, &AuthenticationError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("requesting access token", "user", c.cfg.Username, "platform", c.cfg.Platform)

	var tr tokenResponse
	if err := c.send(req, &tr); err != nil {
		return "", 0, &AuthenticationError{Err: err}
	}
	if tr.AccessToken == "" || tr.ExpiresIn <= 0 {
		return "", 0, &AuthenticationError{Err: errors.New("token response is missing access_token or expires_in")}
	}
	return tr.AccessToken, time.Duration(tr.ExpiresIn) * time.Second, nil
}

// InstalledPackage returns the installed package named name, or nil.
func (c *Client) InstalledPackage(ctx context.Context, name string) (*Package, error) {
	return c.findPackage(ctx, "list installed packages", packagesAPI+"/installed", name)
}

// StagedPackage returns the staged package named name, or nil.
func (c *Client) StagedPackage(ctx context.Context, name string) (*Package, error) {
	return c.findPackage(ctx, "list staged packages", packagesAPI+"/staged", name)
}

func (c *Client) findPackage(ctx context.Context, op, path, name string) (*Package, error) {
	var list packageList
	if err := c.call(ctx, op, http.MethodGet, path, &list); err != nil {
		return nil, err
	}
	for i := range list.Packages {
		if list.Packages[i].Name == name {
			p := list.Packages[i]
			return &p, nil
		}
	}
	return nil, nil
}

// UninstallPackage uninstalls the installed package with the given id.
func (c *Client) UninstallPackage(ctx context.Context, id string) error {
	return c.call(ctx, "uninstall package", http.MethodGet, packagesAPI+"/"+url.PathEscape(id)+"/uninstall", nil)
}

// DeleteStagedPackage removes the staged package named name. It is a no-op
// when nothing with that name is staged.
func (c *Client) DeleteStagedPackage(ctx context.Context, name string) error {
	staged, err := c.StagedPackage(ctx, name)
	if err != nil {
		return err
	}
	if staged == nil {
		c.logger.Debug("no staged package to delete", "name", name)
		return nil
	}
	return c.call(ctx, "delete staged package", http.MethodDelete, packagesAPI+"/"+url.PathEscape(staged.StagedFileID), nil)
}

// InstallPackage installs a previously uploaded archive.
func (c *Client) InstallPackage(ctx context.Context, installID string) error {
	return c.call(ctx, "install package", http.MethodGet, packagesAPI+"/"+url.PathEscape(installID)+"/install", nil)
}

// call performs an authenticated request without a body and decodes the JSON
// response into out when out is non-nil.
func (c *Client) call(ctx context.Context, op, method, path string, out any) error {
	req, err := c.newRequest(ctx, op, method, path, nil)
	if err != nil {
		return err
	}
	if err := c.send(req, out); err != nil {
		return &RemoteOperationError{Op: op, Err: err}
	}
	return nil
}

// newRequest builds a request carrying the current access token. Token
// failures surface as AuthenticationError.
func (c *Client) newRequest(ctx context.Context, op, method, path string, body io.Reader) (*http.Request, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return nil, &RemoteOperationError{Op: op, Err: err}
	}
	req.Header.Set(tokenHeader, token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// send executes req, applies the status check and decodes the body.
func (c *Client) send(req *http.Request, out any) error {
	c.logger.Debug("request", "method", req.Method, "path", req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.logger.Debug("response", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)

	if err := checkResponse(resp, body); err != nil {
		if resp.StatusCode == http.StatusUnauthorized && req.Header.Get(tokenHeader) != "" {
			c.forgetToken()
		}
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// forgetToken drops the cached token after the instance rejected it, so the
// next run performs a fresh grant.
func (c *Client) forgetToken() {
	if c.tokens == nil {
		return
	}
	if err := c.tokens.Delete(c.cacheKey); err != nil {
		c.logger.Warn("could not drop rejected access token", "err", err)
		return
	}
	c.logger.Debug("dropped rejected access token", "key", c.cacheKey)
}
