package profile

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/PraveenPrabhuT/sugar-pack/internal/sugar"
)

// SecretResolver fetches a password stored in an external secret store.
type SecretResolver interface {
	Password(ctx context.Context, p Profile) (string, error)
}

// Resolver merges file profiles with command-line overrides.
type Resolver struct {
	Profiles []Profile
	Secrets  SecretResolver
	Logger   *log.Logger
}

// Request selects a profile and carries the command-line values.
type Request struct {
	// ProfileName picks a profile by name. Empty, or a name that does not
	// exist, selects the first profile.
	ProfileName string
	Overrides   Profile
}

// Merge returns base with every non-empty field of override applied.
func Merge(base, override Profile) Profile {
	pick := func(a, b string) string {
		if b != "" {
			return b
		}
		return a
	}
	return Profile{
		Name:           pick(base.Name, override.Name),
		Instance:       pick(base.Instance, override.Instance),
		Username:       pick(base.Username, override.Username),
		Password:       pick(base.Password, override.Password),
		Platform:       pick(base.Platform, override.Platform),
		PasswordSecret: pick(base.PasswordSecret, override.PasswordSecret),
		AWSProfile:     pick(base.AWSProfile, override.AWSProfile),
		AWSRegion:      pick(base.AWSRegion, override.AWSRegion),
	}
}

// Select returns the profile a request refers to.
func (r *Resolver) Select(name string) Profile {
	if len(r.Profiles) == 0 {
		return Profile{}
	}
	if name != "" {
		if p, ok := ByName(r.Profiles, name); ok {
			return p
		}
		r.logger().Warn(fmt.Sprintf("couldn't find profile %s, defaulting to first item", name))
	}
	return r.Profiles[0]
}

// Resolve produces the connection for req. Every missing required field is
// reported in one ConfigurationError.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Connection, error) {
	p := Merge(r.Select(req.ProfileName), req.Overrides)

	if p.Password == "" && p.PasswordSecret != "" {
		if r.Secrets == nil {
			return Connection{}, fmt.Errorf("profile %q uses password_secret but no secret store is configured", p.Name)
		}
		pw, err := r.Secrets.Password(ctx, p)
		if err != nil {
			return Connection{}, fmt.Errorf("secrets: %w", err)
		}
		p.Password = pw
	}
	if p.Platform == "" {
		p.Platform = sugar.DefaultPlatform
	}

	var missing []string
	if p.Instance == "" {
		missing = append(missing, "instance")
	}
	if p.Username == "" {
		missing = append(missing, "username")
	}
	if p.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return Connection{}, &ConfigurationError{Missing: missing}
	}

	return Connection{
		name:        p.Name,
		instanceURL: p.Instance,
		username:    p.Username,
		password:    p.Password,
		platform:    p.Platform,
	}, nil
}

func (r *Resolver) logger() *log.Logger {
	if r.Logger == nil {
		return log.New(io.Discard)
	}
	return r.Logger
}
