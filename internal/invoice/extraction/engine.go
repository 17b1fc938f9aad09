package extraction

import "context"

// Engine recognises the text of a single page image.
// Implementations can be swapped in without touching the service or handler.
type Engine interface {
	// Recognize returns the plain text of a PNG encoded page
	Recognize(ctx context.Context, page []byte) (string, error)

	// Name returns the engine name for logging and the parse response
	Name() string
}

// Registry holds the configured engines in fallback order
type Registry struct {
	engines []Engine
}

// NewRegistry creates a registry; nil engines are skipped
func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{}
	for _, e := range engines {
		if e != nil {
			r.engines = append(r.engines, e)
		}
	}
	return r
}

// Engines returns the engines in registration order
func (r *Registry) Engines() []Engine {
	return r.engines
}

// Names lists the registered engine names
func (r *Registry) Names() []string {
	names := make([]string, len(r.engines))
	for i, e := range r.engines {
		names[i] = e.Name()
	}
	return names
}
