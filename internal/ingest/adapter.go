package ingest

import (
	"sort"

	"github.com/smetaworks/estimate-api/internal/domain"
	"go.uber.org/zap"
)

// Adapter is one format-specific extraction variant. Detect returns a
// confidence in [0,1] for the raw bytes; Parse produces the canonical
// ImportDocument. Adapters are stateless and safe for concurrent use.
type Adapter interface {
	Name() string
	Detect(data []byte) float64
	Parse(data []byte) (*domain.ImportDocument, error)
}

// minConfidence is the floor below which an adapter's Detect result is
// treated as "not mine".
const minConfidence = 0.4

// Registry holds the closed set of adapters in descending priority order
// and picks the first confident one. This replaces runtime parser discovery
// with a fixed dispatch table.
type Registry struct {
	adapters []registered
	logger   *zap.Logger
}

type registered struct {
	adapter  Adapter
	priority int
}

// NewRegistry creates an empty adapter registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{logger: logger}
}

// NewDefaultRegistry creates a registry with all built-in adapters
func NewDefaultRegistry(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(NewNativeAdapter(), 100)
	r.Register(NewSpreadsheetAdapter(logger), 90)
	r.Register(NewRigidXMLAdapter(), 80)
	r.Register(NewGenericXMLAdapter(logger), 70)
	r.Register(NewDelimitedAdapter(logger), 60)
	return r
}

// Register adds an adapter with a priority; higher priorities are tried first
func (r *Registry) Register(a Adapter, priority int) {
	r.adapters = append(r.adapters, registered{adapter: a, priority: priority})
	sort.SliceStable(r.adapters, func(i, j int) bool {
		return r.adapters[i].priority > r.adapters[j].priority
	})
}

// Get returns the adapter with the given name, if registered
func (r *Registry) Get(name string) (Adapter, bool) {
	for _, reg := range r.adapters {
		if reg.adapter.Name() == name {
			return reg.adapter, true
		}
	}
	return nil, false
}

// Resolve picks the first adapter, in descending priority order, whose
// Detect confidence clears the floor.
func (r *Registry) Resolve(data []byte) (Adapter, error) {
	for _, reg := range r.adapters {
		conf := reg.adapter.Detect(data)
		if r.logger != nil {
			r.logger.Debug("adapter detection",
				zap.String("adapter", reg.adapter.Name()),
				zap.Float64("confidence", conf))
		}
		if conf >= minConfidence {
			return reg.adapter, nil
		}
	}
	return nil, ErrNoAdapter
}

// Parse resolves an adapter for the data and runs it
func (r *Registry) Parse(data []byte) (*domain.ImportDocument, error) {
	adapter, err := r.Resolve(data)
	if err != nil {
		return nil, err
	}
	if r.logger != nil {
		r.logger.Info("parsing with adapter", zap.String("adapter", adapter.Name()))
	}
	return adapter.Parse(data)
}
