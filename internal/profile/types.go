package profile

import (
	"fmt"
	"strings"

	"github.com/PraveenPrabhuT/sugar-pack/internal/sugar"
)

// Profile is one entry of the publish profiles file, or the set of values
// given on the command line. Empty fields are unset.
type Profile struct {
	Name     string `json:"name"`
	Instance string `json:"instance"`
	Username string `json:"username"`
	Password string `json:"password"`
	Platform string `json:"platform"`

	// PasswordSecret names a Secrets Manager secret holding the password.
	// It is read only when Password is empty.
	PasswordSecret string `json:"password_secret"`
	AWSProfile     string `json:"aws_profile"`
	AWSRegion      string `json:"aws_region"`
}

// Connection is a fully resolved profile, ready to build a client from.
type Connection struct {
	name        string
	instanceURL string
	username    string
	password    string
	platform    string
}

func (c Connection) Name() string        { return c.name }
func (c Connection) InstanceURL() string { return c.instanceURL }
func (c Connection) Username() string    { return c.username }
func (c Connection) Platform() string    { return c.platform }

// ClientConfig converts c for sugar.NewClient.
func (c Connection) ClientConfig() sugar.Config {
	return sugar.Config{
		InstanceURL: c.instanceURL,
		Username:    c.username,
		Password:    c.password,
		Platform:    c.platform,
	}
}

// ConfigurationError lists required connection fields nobody supplied.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("no %s was specified, either add it to the publish profiles file or pass it as a flag",
		strings.Join(e.Missing, ", "))
}
