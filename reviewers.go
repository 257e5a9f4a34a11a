package reviewers

import "github.com/goliatone/go-reviewers/service"

// Re-export the service package entry point so consumers can do
// `reviewers.New(...)` without importing the wiring package.
type (
	Service     = service.Service
	Config      = service.Config
	SweepConfig = service.SweepConfig
	Commands    = service.Commands
	Queries     = service.Queries
)

// New constructs the go-reviewers runtime using the provided configuration.
func New(cfg Config) *Service {
	return service.New(cfg)
}
