package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/oni-coach-backend/internal/domain/coach"
)

//go:embed catalog.yaml
var catalogYAML []byte

type Entry struct {
	Key         string                `yaml:"key" json:"key"`
	Type        coach.ConfigValueType `yaml:"type" json:"type"`
	Default     string                `yaml:"default" json:"default"`
	Min         *float64              `yaml:"min" json:"min,omitempty"`
	Max         *float64              `yaml:"max" json:"max,omitempty"`
	ValidValues []string              `yaml:"valid_values" json:"valid_values,omitempty"`
	Description string                `yaml:"description" json:"description,omitempty"`
}

type Catalog struct {
	entries []Entry
	byKey   map[string]Entry
}

// DefaultCatalog parses the embedded key catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

func ParseCatalog(raw []byte) (*Catalog, error) {
	var doc struct {
		Keys []Entry `yaml:"keys"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{byKey: make(map[string]Entry, len(doc.Keys))}
	for _, e := range doc.Keys {
		if e.Key == "" {
			return nil, fmt.Errorf("catalog entry without key")
		}
		if _, dup := c.byKey[e.Key]; dup {
			return nil, fmt.Errorf("duplicate catalog key %q", e.Key)
		}
		if _, err := e.Validate(e.Default); err != nil {
			return nil, fmt.Errorf("catalog default for %s: %w", e.Key, err)
		}
		c.entries = append(c.entries, e)
		c.byKey[e.Key] = e
	}
	return c, nil
}

func (c *Catalog) Lookup(key string) (Entry, bool) {
	e, ok := c.byKey[key]
	return e, ok
}

func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Validate checks raw against the entry and returns its canonical string form.
func (e Entry) Validate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	switch e.Type {
	case coach.ValueInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %s expects an integer", coach.ErrInvalidArgument, e.Key)
		}
		if err := e.checkRange(float64(n)); err != nil {
			return "", err
		}
		return strconv.Itoa(n), nil
	case coach.ValueFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %s expects a number", coach.ErrInvalidArgument, e.Key)
		}
		if err := e.checkRange(f); err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case coach.ValueBool:
		b, ok := parseBool(raw)
		if !ok {
			return "", fmt.Errorf("%w: %s expects a boolean", coach.ErrInvalidArgument, e.Key)
		}
		return strconv.FormatBool(b), nil
	case coach.ValueJSON:
		if !json.Valid([]byte(raw)) {
			return "", fmt.Errorf("%w: %s expects JSON", coach.ErrInvalidArgument, e.Key)
		}
		return raw, nil
	case coach.ValueStr:
		if len(e.ValidValues) > 0 {
			for _, v := range e.ValidValues {
				if v == raw {
					return raw, nil
				}
			}
			return "", fmt.Errorf("%w: %s must be one of %s", coach.ErrInvalidArgument, e.Key, strings.Join(e.ValidValues, ", "))
		}
		return raw, nil
	default:
		return "", fmt.Errorf("%w: %s has unknown type %q", coach.ErrInvalidArgument, e.Key, e.Type)
	}
}

func (e Entry) checkRange(v float64) error {
	if e.Min != nil && v < *e.Min {
		return fmt.Errorf("%w: %s must be >= %v", coach.ErrInvalidArgument, e.Key, *e.Min)
	}
	if e.Max != nil && v > *e.Max {
		return fmt.Errorf("%w: %s must be <= %v", coach.ErrInvalidArgument, e.Key, *e.Max)
	}
	return nil
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}
