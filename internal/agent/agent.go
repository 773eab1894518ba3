// Package agent defines the common surface every pipeline agent
// exposes and a name registry the supervisor dispatches through.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrAgentNotFound indicates the requested agent is not registered.
var ErrAgentNotFound = errors.New("agent not found")

// Agent is one addressable worker in the pipeline. Inputs and
// outputs are loose maps so heterogeneous agents share one dispatch
// path; typed callers use the underlying packages directly.
type Agent interface {
	// Name is the registry key, for example "classifier" or
	// "codegen".
	Name() string
	// Description is a one-line summary shown in status output.
	Description() string
	// Handle processes one request.
	Handle(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Info describes a registered agent for status reporting.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Logger receives one line per dispatch. The orchestrator's debug
// logger satisfies it.
type Logger interface {
	Logf(format string, args ...any)
}

// Registry holds named agents and times every dispatch through them.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	logger Logger
}

// NewRegistry creates an empty registry. logger may be nil.
func NewRegistry(logger Logger) *Registry {
	return &Registry{agents: make(map[string]Agent), logger: logger}
}

// Register adds an agent, replacing any previous one with the same
// name.
func (r *Registry) Register(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.Name()] = a
}

// Get returns the named agent.
func (r *Registry) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// Names lists registered agent names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Infos returns status info for every registered agent, sorted by
// name.
func (r *Registry) Infos() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.agents))
	for _, a := range r.agents {
		infos = append(infos, Info{Name: a.Name(), Description: a.Description()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Dispatch routes input to the named agent, timing the call and
// logging its outcome.
func (r *Registry) Dispatch(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	a, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("dispatch %q: %w", name, ErrAgentNotFound)
	}

	start := time.Now()
	out, err := a.Handle(ctx, input)
	elapsed := time.Since(start)

	if r.logger != nil {
		if err != nil {
			r.logger.Logf("agent %s failed after %s: %v", name, elapsed.Round(time.Millisecond), err)
		} else {
			r.logger.Logf("agent %s completed in %s", name, elapsed.Round(time.Millisecond))
		}
	}
	if err != nil {
		return out, fmt.Errorf("agent %s: %w", name, err)
	}
	return out, nil
}

// Func adapts a bare function into an Agent.
type Func struct {
	AgentName string
	Desc      string
	Fn        func(ctx context.Context, input map[string]any) (map[string]any, error)
}

func (f Func) Name() string        { return f.AgentName }
func (f Func) Description() string { return f.Desc }

func (f Func) Handle(ctx context.Context, input map[string]any) (map[string]any, error) {
	return f.Fn(ctx, input)
}
