package macro

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidIndicator is returned when an indicator config breaks its invariants.
var ErrInvalidIndicator = errors.New("invalid indicator config")

// MethodKind selects how monthly values are derived for an indicator.
type MethodKind string

const (
	MethodPoint          MethodKind = "point"
	MethodTrailingWindow MethodKind = "trailing_window"
	MethodYearOverYear   MethodKind = "yoy_pct"
)

// Direction says which side of the thresholds is the bad one.
type Direction string

const (
	HigherIsWorse Direction = "higher_is_worse"
	LowerIsWorse  Direction = "lower_is_worse"
)

// AggregationMethod is a tagged variant: Window is only meaningful for
// MethodTrailingWindow.
type AggregationMethod struct {
	Kind   MethodKind `yaml:"method" json:"method" validate:"required,oneof=point trailing_window yoy_pct"`
	Window int        `yaml:"window,omitempty" json:"window,omitempty"`
}

// Point builds a POINT method.
func Point() AggregationMethod { return AggregationMethod{Kind: MethodPoint} }

// TrailingWindow builds a TRAILING_WINDOW(n) method.
func TrailingWindow(n int) AggregationMethod {
	return AggregationMethod{Kind: MethodTrailingWindow, Window: n}
}

// YearOverYear builds a YEAR_OVER_YEAR_PCT method.
func YearOverYear() AggregationMethod { return AggregationMethod{Kind: MethodYearOverYear} }

func (m AggregationMethod) String() string {
	if m.Kind == MethodTrailingWindow {
		return fmt.Sprintf("%s(%d)", m.Kind, m.Window)
	}
	return string(m.Kind)
}

// Thresholds holds the caution and warning bounds. The caution bound is
// always the one nearer the benign side.
type Thresholds struct {
	Caution float64 `yaml:"caution" json:"caution"`
	Warning float64 `yaml:"warning" json:"warning"`
}

// IndicatorConfig is the static per-indicator configuration.
type IndicatorConfig struct {
	ID          string            `yaml:"id" json:"id" validate:"required"`
	Label       string            `yaml:"label" json:"label"`
	Method      AggregationMethod `yaml:"aggregation" json:"aggregation"`
	Direction   Direction         `yaml:"direction" json:"direction" validate:"required,oneof=higher_is_worse lower_is_worse"`
	Thresholds  Thresholds        `yaml:"thresholds" json:"thresholds"`
	Explanation string            `yaml:"explanation,omitempty" json:"explanation,omitempty"`
	SourceURL   string            `yaml:"source,omitempty" json:"source,omitempty" validate:"omitempty,url"`
	FREDSeries  string            `yaml:"fred_series,omitempty" json:"fredSeries,omitempty"`
}

// DisplayLabel falls back to the id when no label is configured.
func (c IndicatorConfig) DisplayLabel() string {
	if strings.TrimSpace(c.Label) != "" {
		return c.Label
	}
	return c.ID
}

var validate = validator.New()

// Validate checks the config against its structural and ordering invariants.
func (c IndicatorConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidIndicator, c.ID, err)
	}
	if c.Method.Kind == MethodTrailingWindow && c.Method.Window < 1 {
		return fmt.Errorf("%w: %s: trailing window must be at least 1 month, got %d", ErrInvalidIndicator, c.ID, c.Method.Window)
	}
	caution, warning := c.Thresholds.Caution, c.Thresholds.Warning
	if math.IsNaN(caution) || math.IsInf(caution, 0) || math.IsNaN(warning) || math.IsInf(warning, 0) {
		return fmt.Errorf("%w: %s: thresholds must be finite", ErrInvalidIndicator, c.ID)
	}
	switch c.Direction {
	case HigherIsWorse:
		if caution > warning {
			return fmt.Errorf("%w: %s: higher_is_worse requires caution (%g) <= warning (%g)", ErrInvalidIndicator, c.ID, caution, warning)
		}
	case LowerIsWorse:
		if caution < warning {
			return fmt.Errorf("%w: %s: lower_is_worse requires caution (%g) >= warning (%g)", ErrInvalidIndicator, c.ID, caution, warning)
		}
	}
	return nil
}

// Catalog is the immutable, ordered indicator table.
type Catalog struct {
	indicators []IndicatorConfig
	byID       map[string]int
}

// NewCatalog validates every config and rejects duplicate ids.
func NewCatalog(configs []IndicatorConfig) (*Catalog, error) {
	c := &Catalog{
		indicators: make([]IndicatorConfig, 0, len(configs)),
		byID:       make(map[string]int, len(configs)),
	}
	for _, cfg := range configs {
		cfg.ID = strings.TrimSpace(cfg.ID)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[cfg.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate indicator id %q", ErrInvalidIndicator, cfg.ID)
		}
		c.byID[cfg.ID] = len(c.indicators)
		c.indicators = append(c.indicators, cfg)
	}
	return c, nil
}

type catalogFile struct {
	Indicators []IndicatorConfig `yaml:"indicators"`
}

// ParseCatalog decodes a YAML indicator table.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse indicator table: %w", err)
	}
	if len(file.Indicators) == 0 {
		return nil, fmt.Errorf("%w: indicator table is empty", ErrInvalidIndicator)
	}
	return NewCatalog(file.Indicators)
}

// LoadCatalog reads and parses the YAML indicator table at path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read indicator table: %w", err)
	}
	return ParseCatalog(data)
}

// Lookup returns the config for id.
func (c *Catalog) Lookup(id string) (IndicatorConfig, bool) {
	i, ok := c.byID[id]
	if !ok {
		return IndicatorConfig{}, false
	}
	return c.indicators[i], true
}

// IDs returns indicator ids in configured order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.indicators))
	for i, cfg := range c.indicators {
		ids[i] = cfg.ID
	}
	return ids
}

// All returns a copy of the configs in configured order.
func (c *Catalog) All() []IndicatorConfig {
	out := make([]IndicatorConfig, len(c.indicators))
	copy(out, c.indicators)
	return out
}

// Len reports the number of configured indicators.
func (c *Catalog) Len() int {
	return len(c.indicators)
}
