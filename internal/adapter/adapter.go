// Package adapter defines the uniform interface every cloud GPU
// provider integration implements, plus a process-wide registry of
// concrete adapters keyed by provider id.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/theoddden/terradev-broker/pkg/model"
)

// QuoteRequest describes what the caller is shopping for. Providers,
// if non-empty, restricts the Aggregator's fan-out to that subset of
// registered adapters.
type QuoteRequest struct {
	GPUFamily     model.GPUFamily
	GPUCount      int
	Regions       []string
	Availability  model.AvailabilityKind
	MaxPricePerHr float64
	Providers     []model.ProviderID
}

// ProvisionRequest describes one instance to bring up.
type ProvisionRequest struct {
	InstanceType string
	Region       string
	GPUFamily    model.GPUFamily
	GPUCount     int
	Availability model.AvailabilityKind
	Image        string
	Labels       map[string]string
}

// ProvisionedInstance is what a successful Provision call returns.
type ProvisionedInstance struct {
	InstanceID   string
	Status       model.ProvisionStatus
	PricePerHour float64
	PublicIP     string
}

// InstanceInfo is one entry in ListInstances' result.
type InstanceInfo struct {
	InstanceID string
	Status     string
	Region     string
	GPUFamily  model.GPUFamily
	GPUCount   int
	PublicIP   string
}

// CommandResult is the outcome of ExecuteCommand.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Adapter is the uniform surface the broker drives every provider
// through: quote discovery, lifecycle management, and remote command
// execution. Grounded on helpers/vastai/client.go's method set
// (List/Reserve/Status/Release) generalized to the full instance
// lifecycle.
type Adapter interface {
	ID() model.ProviderID
	GetQuotes(ctx context.Context, req QuoteRequest) ([]model.Quote, error)
	Provision(ctx context.Context, req ProvisionRequest) (ProvisionedInstance, error)
	Status(ctx context.Context, instanceID string) (InstanceInfo, error)
	Stop(ctx context.Context, instanceID string) error
	Start(ctx context.Context, instanceID string) error
	Terminate(ctx context.Context, instanceID string) error
	ListInstances(ctx context.Context) ([]InstanceInfo, error)
	ExecuteCommand(ctx context.Context, instanceID, command string) (CommandResult, error)
}

// ErrExecuteCommandNotWired is wrapped into the error an adapter
// returns from ExecuteCommand when it has no native run-command
// facility implemented. The engine layer uses errors.Is against this
// sentinel to decide whether an SSH fallback is worth attempting.
var ErrExecuteCommandNotWired = errors.New("adapter: execute_command not wired for this provider")

// ErrUnsupportedProvider is returned when a group/provision dispatch
// references a provider id with no registered adapter.
type ErrUnsupportedProvider struct {
	Provider model.ProviderID
}

func (e *ErrUnsupportedProvider) Error() string {
	return fmt.Sprintf("adapter: unsupported provider %q", e.Provider)
}

// Registry holds one Adapter per provider id. Re-registering a
// provider replaces the previous adapter rather than erroring — useful
// for swapping in a demo adapter or a test double.
type Registry struct {
	mu       sync.RWMutex
	adapters map[model.ProviderID]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[model.ProviderID]Adapter)}
}

func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.ID()] = a
}

func (r *Registry) Get(id model.ProviderID) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	if !ok {
		return nil, &ErrUnsupportedProvider{Provider: id}
	}
	return a, nil
}

func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

func (r *Registry) IDs() []model.ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ProviderID, 0, len(r.adapters))
	for id := range r.adapters {
		out = append(out, id)
	}
	return out
}
