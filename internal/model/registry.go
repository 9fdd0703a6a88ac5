package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/chrissnell/pvforecast/internal/types"
	"go.uber.org/zap"
)

// ErrModelLoad is returned when a bundle cannot be read or is invalid
var ErrModelLoad = errors.New("model bundle could not be loaded")

var bundleIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Manifest is the on-disk form of a bundle
type Manifest struct {
	Name         string     `json:"name"`
	Kind         Kind       `json:"kind"`
	FeatureOrder []string   `json:"feature_order"`
	BaseScore    float64    `json:"base_score,omitempty"`
	Comparison   Comparison `json:"comparison,omitempty"`
	Trees        []Node     `json:"trees,omitempty"`
	Intercept    float64    `json:"intercept,omitempty"`
	Coefficients []float64  `json:"coefficients,omitempty"`
}

// Registry loads bundles from <dir>/<id>.json
type Registry struct {
	dir    string
	logger *zap.SugaredLogger
}

// NewRegistry creates a registry rooted at dir
func NewRegistry(dir string, logger *zap.SugaredLogger) *Registry {
	return &Registry{dir: dir, logger: logger}
}

// Load reads and compiles the bundle with the given ID. Failures are not
// retried.
func (r *Registry) Load(id string) (*Bundle, error) {
	if !bundleIDPattern.MatchString(id) {
		return nil, fmt.Errorf("%w: invalid bundle id %q", ErrModelLoad, id)
	}

	path := filepath.Join(r.dir, id+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrModelLoad, path, err)
	}
	if m.Name == "" {
		m.Name = id
	}

	b, err := Build(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelLoad, path, err)
	}

	r.logger.Infof("loaded %s model bundle %q from %s (%d features)", b.Kind, b.Name, path, len(b.FeatureOrder))
	return b, nil
}

// Build validates a manifest and compiles its predictor
func Build(m Manifest) (*Bundle, error) {
	if len(m.FeatureOrder) == 0 {
		return nil, fmt.Errorf("bundle %q has an empty feature order", m.Name)
	}
	seen := make(map[string]bool, len(m.FeatureOrder))
	for _, c := range m.FeatureOrder {
		if !types.KnownColumn(c) {
			return nil, fmt.Errorf("bundle %q uses unknown feature %q", m.Name, c)
		}
		if seen[c] {
			return nil, fmt.Errorf("bundle %q lists feature %q twice", m.Name, c)
		}
		seen[c] = true
	}

	var p Predictor
	switch m.Kind {
	case KindGBTree, KindForest:
		e, err := NewEnsemble(m.Kind, m.Trees, m.FeatureOrder, m.Comparison, m.BaseScore)
		if err != nil {
			return nil, err
		}
		p = e
	case KindLinear:
		if len(m.Coefficients) != len(m.FeatureOrder) {
			return nil, fmt.Errorf("linear bundle %q has %d coefficients for %d features",
				m.Name, len(m.Coefficients), len(m.FeatureOrder))
		}
		p = NewLinear(m.Intercept, m.Coefficients)
	default:
		return nil, fmt.Errorf("bundle %q has unsupported kind %q", m.Name, m.Kind)
	}

	order := make([]string, len(m.FeatureOrder))
	copy(order, m.FeatureOrder)
	return &Bundle{
		Name:         m.Name,
		Kind:         m.Kind,
		FeatureOrder: order,
		Predictor:    p,
	}, nil
}
