package profile

import (
	"fmt"

	"github.com/ktr0731/go-fuzzyfinder"
)

// Pick lets the user choose a profile interactively.
func Pick(profiles []Profile) (Profile, error) {
	if len(profiles) == 0 {
		return Profile{}, ErrNoProfiles
	}
	if len(profiles) == 1 {
		return profiles[0], nil
	}
	idx, err := fuzzyfinder.Find(
		profiles,
		func(i int) string {
			return fmt.Sprintf("%-20s | %s", displayName(profiles[i], i), profiles[i].Instance)
		},
		fuzzyfinder.WithHeader("Select publish profile"),
	)
	if err != nil {
		return Profile{}, err
	}
	return profiles[idx], nil
}

func displayName(p Profile, i int) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("#%d", i+1)
}
