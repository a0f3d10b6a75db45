package core

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Environment holds per-process overrides. Agents set these so every
// command they run is attributed to the same session.
type Environment struct {
	Root      string `env:"DEVOPS_ROOT"`
	Developer string `env:"DEVOPS_DEVELOPER"`
	Agent     string `env:"DEVOPS_AGENT"      envDefault:"cli"`
	Model     string `env:"DEVOPS_MODEL"`
	SessionID string `env:"DEVOPS_SESSION_ID"`
}

// LoadEnvironment parses Environment from the process environment.
func LoadEnvironment() (Environment, error) {
	var e Environment
	if err := env.Parse(&e); err != nil {
		return Environment{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Driver returns the claim driver described by the environment.
func (e Environment) Driver() Driver {
	return Driver{Agent: e.Agent, Model: e.Model, SessionID: e.SessionID}
}
