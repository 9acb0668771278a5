package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/latctl/internal/lateral"
)

// Gain is a speed breakpoint table. In YAML it is either a plain number or
// a mapping with bp and v lists.
type Gain struct {
	BP []float64 `yaml:"bp"`
	V  []float64 `yaml:"v"`
}

func Scalar(k float64) Gain {
	return Gain{BP: []float64{0}, V: []float64{k}}
}

func (g Gain) IsScalar() bool {
	return len(g.V) == 1
}

func (g Gain) Build() (lateral.Gain, error) {
	return lateral.Interpolated(g.BP, g.V)
}

func (g *Gain) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var k float64
		if err := node.Decode(&k); err != nil {
			return fmt.Errorf("gain: %w", err)
		}
		*g = Scalar(k)
		return nil
	}

	type table Gain
	var t table
	if err := node.Decode(&t); err != nil {
		return fmt.Errorf("gain: %w", err)
	}
	*g = Gain(t)
	return nil
}

func (g Gain) MarshalYAML() (interface{}, error) {
	if g.IsScalar() && len(g.BP) == 1 && g.BP[0] == 0 {
		return g.V[0], nil
	}
	type table Gain
	return table(g), nil
}
