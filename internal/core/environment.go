package core

import "strings"

// Environment is the deployment stage the service runs in. It selects the
// log format and nothing else.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

var knownEnvironments = map[Environment]struct{}{
	Development: {},
	Staging:     {},
	Testing:     {},
	Production:  {},
}

func (e Environment) String() string { return string(e) }

// IsProduction reports whether logs should be emitted as JSON.
func (e Environment) IsProduction() bool { return e == Production }

// Decode implements envconfig.Decoder.
func (e *Environment) Decode(value string) error {
	*e = ParseEnvironment(value)
	return nil
}

// ParseEnvironment is case-insensitive; anything unrecognised is Development.
func ParseEnvironment(v string) Environment {
	env := Environment(strings.ToLower(strings.TrimSpace(v)))
	if _, ok := knownEnvironments[env]; ok {
		return env
	}
	return Development
}
