// Package txregistry holds the Transaction Registry (§4.3): the mapping
// from transaction id to Descriptor, parsed from transactions.yaml and
// swapped atomically on reload.
package txregistry

// ParameterType is one of the six parameter shapes a descriptor may
// declare for a parameter.
type ParameterType string

const (
	TypeString  ParameterType = "string"
	TypeInt     ParameterType = "int"
	TypeFloat   ParameterType = "float"
	TypeDecimal ParameterType = "decimal"
	TypeBool    ParameterType = "bool"
	TypeObject  ParameterType = "object"
)

// ParameterSpec describes one named, typed, optionally constrained
// parameter of a Transaction Descriptor.
type ParameterSpec struct {
	Name      string        `yaml:"name"`
	Type      ParameterType `yaml:"type"`
	Required  bool          `yaml:"required"`
	MaxLength int           `yaml:"max_length,omitempty"`
	Pattern   string        `yaml:"pattern,omitempty"`
	Min       *float64      `yaml:"min,omitempty"`
	Max       *float64      `yaml:"max,omitempty"`
	Default   any           `yaml:"default,omitempty"`
}

// ExpectedField is one named typed field of an ExpectedResponse.
type ExpectedField struct {
	Name string        `yaml:"name"`
	Type ParameterType `yaml:"type"`
}

// ExpectedResponse documents the nominal shape of a downstream response, for
// caller reference; the router does not enforce it.
type ExpectedResponse struct {
	Status string          `yaml:"status,omitempty"`
	Fields []ExpectedField `yaml:"fields,omitempty"`
}

// Descriptor is one Transaction Descriptor (§3). Id is populated from the
// YAML map key, never from an inline `id` field — per the Open Question
// resolution recorded in DESIGN.md, any inline id is ignored.
type Descriptor struct {
	Id               string           `yaml:"-"`
	Protocol         string           `yaml:"protocol"`
	Endpoint         string           `yaml:"endpoint"`
	Parameters       []ParameterSpec  `yaml:"parameters"`
	AllowExtras      bool             `yaml:"allow_extras,omitempty"`
	ExpectedResponse ExpectedResponse `yaml:"expected_response,omitempty"`
}

// document is the on-disk shape of transactions.yaml.
type document struct {
	Transactions map[string]Descriptor `yaml:"transactions"`
}
