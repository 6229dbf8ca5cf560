package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/tetratelabs/wasm2spirv/api"
)

// rawConfig is the document shape shared by JSON and YAML. Pointers tell a missing field from a zero one.
type rawConfig struct {
	Platform        *rawPlatform           `json:"platform" yaml:"platform"`
	AddressingModel string                 `json:"addressing_model" yaml:"addressing_model"`
	MemoryModel     string                 `json:"memory_model" yaml:"memory_model"`
	Capabilities    *rawCapabilities       `json:"capabilities" yaml:"capabilities"`
	Extensions      []string               `json:"extensions" yaml:"extensions"`
	Features        *rawFeatures           `json:"features" yaml:"features"`
	MemoryGrowError string                 `json:"memory_grow_error" yaml:"memory_grow_error"`
	Functions       map[string]rawFunction `json:"functions" yaml:"functions"`
}

type rawPlatform struct {
	Vulkan    *rawVersion `json:"vulkan" yaml:"vulkan"`
	Universal *rawVersion `json:"universal" yaml:"universal"`
}

type rawVersion struct {
	Major uint8 `json:"major" yaml:"major"`
	Minor uint8 `json:"minor" yaml:"minor"`
}

type rawCapabilities struct {
	Static  []string `json:"static" yaml:"static"`
	Dynamic []string `json:"dynamic" yaml:"dynamic"`
}

type rawFeatures struct {
	Memory64             *bool `json:"memory64" yaml:"memory64"`
	SaturatingFloatToInt *bool `json:"saturating_float_to_int" yaml:"saturating_float_to_int"`
	SignExtension        *bool `json:"sign_extension" yaml:"sign_extension"`
}

type rawFunction struct {
	ExecutionModel string                `json:"execution_model" yaml:"execution_model"`
	ExecutionModes []map[string][]uint32 `json:"execution_modes" yaml:"execution_modes"`
	Params         map[string]rawParam   `json:"params" yaml:"params"`
}

type rawParam struct {
	// Type is a scalar type name: i32, i64, f32 or f64.
	Type            string   `json:"type" yaml:"type"`
	StructuredArray bool     `json:"structured_array" yaml:"structured_array"`
	Kind            *rawKind `json:"kind" yaml:"kind"`
}

type rawKind struct {
	FunctionParameter *struct{}         `json:"function_parameter" yaml:"function_parameter"`
	Input             *uint32           `json:"input" yaml:"input"`
	Output            *uint32           `json:"output" yaml:"output"`
	DescriptorSet     *rawDescriptorSet `json:"descriptor_set" yaml:"descriptor_set"`
}

type rawDescriptorSet struct {
	StorageClass string `json:"storage_class" yaml:"storage_class"`
	Set          uint32 `json:"set" yaml:"set"`
	Binding      uint32 `json:"binding" yaml:"binding"`
}

// ParseJSON parses a JSON config document and builds it. Errors are *api.ConfigError naming the field.
func ParseJSON(data []byte) (*Config, error) {
	var raw rawConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &api.ConfigError{Field: typeErr.Field, Err: err}
		}
		return nil, &api.ConfigError{Err: err}
	}
	return raw.resolve()
}

// ParseYAML parses a YAML config document, which has the same shape as the JSON one.
func ParseYAML(data []byte) (*Config, error) {
	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, &api.ConfigError{Err: err}
	}
	return raw.resolve()
}

func (r *rawConfig) resolve() (*Config, error) {
	target, err := r.Platform.resolve()
	if err != nil {
		return nil, err
	}

	if r.AddressingModel == "" {
		return nil, &api.ConfigError{Field: "addressing_model", Err: errRequired}
	}
	addressing, ok := api.ParseAddressingModel(r.AddressingModel)
	if !ok {
		return nil, unknownName("addressing_model", "addressing model", r.AddressingModel)
	}

	if r.MemoryModel == "" {
		return nil, &api.ConfigError{Field: "memory_model", Err: errRequired}
	}
	memory, ok := api.ParseMemoryModel(r.MemoryModel)
	if !ok {
		return nil, unknownName("memory_model", "memory model", r.MemoryModel)
	}

	caps, err := r.Capabilities.resolve()
	if err != nil {
		return nil, err
	}

	b := NewBuilder(target, caps, r.Extensions, addressing, memory)
	if r.Features != nil {
		b = b.WithFeatures(r.Features.resolve())
	}

	switch r.MemoryGrowError {
	case "", "soft":
	case "hard":
		b = b.WithMemoryGrowError(MemoryGrowErrorHard)
	default:
		return nil, unknownName("memory_grow_error", "memory.grow error", r.MemoryGrowError)
	}

	keys := make([]string, 0, len(r.Functions))
	for k := range r.Functions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		field := "functions." + k
		index, err := parseIndex(field, k)
		if err != nil {
			return nil, err
		}
		f, err := r.Functions[k].resolve(field)
		if err != nil {
			return nil, err
		}
		b = b.WithFunction(index, f)
	}
	return b.Build()
}

var errRequired = errors.New("required field is missing")

func unknownName(field, what, name string) error {
	return &api.ConfigError{Field: field, Err: fmt.Errorf("unknown %s %q", what, name)}
}

func parseIndex(field, key string) (uint32, error) {
	i, err := strconv.ParseUint(key, 10, 32)
	if err != nil {
		return 0, &api.ConfigError{Field: field, Err: fmt.Errorf("invalid index %q", key)}
	}
	return uint32(i), nil
}

func (p *rawPlatform) resolve() (Target, error) {
	switch {
	case p == nil || (p.Vulkan == nil && p.Universal == nil):
		return Target{}, &api.ConfigError{Field: "platform", Err: errRequired}
	case p.Vulkan != nil && p.Universal != nil:
		return Target{}, &api.ConfigError{Field: "platform", Err: errors.New("set only one of vulkan and universal")}
	case p.Vulkan != nil:
		return Vulkan(p.Vulkan.Major, p.Vulkan.Minor), nil
	}
	return Universal(p.Universal.Major, p.Universal.Minor), nil
}

func (c *rawCapabilities) resolve() (CapabilityModel, error) {
	if c == nil {
		return CapabilityModel{}, &api.ConfigError{Field: "capabilities", Err: errRequired}
	}
	if c.Static != nil && c.Dynamic != nil {
		return CapabilityModel{}, &api.ConfigError{Field: "capabilities", Err: errors.New("set only one of static and dynamic")}
	}

	kind, names, field := CapabilityModelDynamic, c.Dynamic, "capabilities.dynamic"
	if c.Static != nil {
		kind, names, field = CapabilityModelStatic, c.Static, "capabilities.static"
	}
	ret := CapabilityModel{Kind: kind}
	for i, name := range names {
		capability, ok := api.ParseCapability(name)
		if !ok {
			return CapabilityModel{}, unknownName(fmt.Sprintf("%s.%d", field, i), "capability", name)
		}
		ret.List = append(ret.List, capability)
	}
	return ret, nil
}

func (f *rawFeatures) resolve() Features {
	ret := DefaultFeatures()
	if f.Memory64 != nil {
		ret.Memory64 = *f.Memory64
	}
	if f.SaturatingFloatToInt != nil {
		ret.SaturatingFloatToInt = *f.SaturatingFloatToInt
	}
	if f.SignExtension != nil {
		ret.SignExtension = *f.SignExtension
	}
	return ret
}

func (f rawFunction) resolve(field string) (*FunctionConfig, error) {
	ret := NewFunctionConfig()
	if f.ExecutionModel != "" {
		m, ok := api.ParseExecutionModel(f.ExecutionModel)
		if !ok {
			return nil, unknownName(field+".execution_model", "execution model", f.ExecutionModel)
		}
		ret = ret.WithExecutionModel(m)
	}

	for j, entry := range f.ExecutionModes {
		modeField := fmt.Sprintf("%s.execution_modes.%d", field, j)
		if len(entry) != 1 {
			return nil, &api.ConfigError{Field: modeField, Err: fmt.Errorf("expected one mode, but found %d", len(entry))}
		}
		for name, operands := range entry {
			m, ok := api.ParseExecutionMode(name)
			if !ok {
				return nil, unknownName(modeField, "execution mode", name)
			}
			ret = ret.WithExecutionMode(ExecutionMode{Mode: m, Operands: operands})
		}
	}

	keys := make([]string, 0, len(f.Params))
	for k := range f.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		paramField := field + ".params." + k
		index, err := parseIndex(paramField, k)
		if err != nil {
			return nil, err
		}
		p, err := f.Params[k].resolve(paramField)
		if err != nil {
			return nil, err
		}
		ret = ret.WithParam(index, p)
	}
	return ret, nil
}

func (p rawParam) resolve(field string) (Parameter, error) {
	var ret Parameter
	if k := p.Kind; k != nil {
		set := 0
		if k.FunctionParameter != nil {
			set++
		}
		if k.Input != nil {
			set++
			ret = InputParameter(*k.Input)
		}
		if k.Output != nil {
			set++
			ret = OutputParameter(*k.Output)
		}
		if d := k.DescriptorSet; d != nil {
			set++
			sc, ok := api.ParseStorageClass(d.StorageClass)
			if !ok {
				return ret, unknownName(field+".kind.descriptor_set.storage_class", "storage class", d.StorageClass)
			}
			ret = DescriptorSetParameter(sc, d.Set, d.Binding)
		}
		if set != 1 {
			return ret, &api.ConfigError{Field: field + ".kind", Err: fmt.Errorf("expected one kind, but found %d", set)}
		}
	}

	switch {
	case p.Type != "":
		t, ok := api.ParseValueType(p.Type)
		if !ok {
			return ret, unknownName(field+".type", "type", p.Type)
		}
		if p.StructuredArray {
			ret = ret.WithStructuredArray(t)
		} else {
			ret = ret.WithScalar(t)
		}
	case p.StructuredArray:
		return ret, &api.ConfigError{Field: field + ".type", Err: errors.New("a structured array needs an element type")}
	}
	return ret, nil
}
