package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Decimal is a yaml-friendly decimal. Values may be written quoted or bare;
// an empty or null value decodes to zero.
type Decimal struct {
	decimal.Decimal
}

func (d *Decimal) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!null" {
		d.Decimal = decimal.Zero
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("decimal value must be a scalar, got %s", value.Tag)
	}
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		d.Decimal = decimal.Zero
		return nil
	}
	dec, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("decimal value %q: %w", raw, err)
	}
	d.Decimal = dec
	return nil
}

func (d Decimal) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
