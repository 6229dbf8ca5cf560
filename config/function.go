package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tetratelabs/wasm2spirv/api"
)

// ExecutionMode is an OpExecutionMode of an entry point.
type ExecutionMode struct {
	Mode     api.ExecutionMode
	Operands []uint32
}

// LocalSize is the workgroup size of a compute entry point.
func LocalSize(x, y, z uint32) ExecutionMode {
	return ExecutionMode{Mode: api.ExecutionModeLocalSize, Operands: []uint32{x, y, z}}
}

// LocalSizeHint is the expected workgroup size of a kernel.
func LocalSizeHint(x, y, z uint32) ExecutionMode {
	return ExecutionMode{Mode: api.ExecutionModeLocalSizeHint, Operands: []uint32{x, y, z}}
}

// Invocations is the number of invocations of a geometry entry point.
func Invocations(n uint32) ExecutionMode {
	return ExecutionMode{Mode: api.ExecutionModeInvocations, Operands: []uint32{n}}
}

// OriginUpperLeft, OriginLowerLeft, PixelCenterInteger and DepthReplacing are fragment modes without operands.
var (
	OriginUpperLeft    = ExecutionMode{Mode: api.ExecutionModeOriginUpperLeft}
	OriginLowerLeft    = ExecutionMode{Mode: api.ExecutionModeOriginLowerLeft}
	PixelCenterInteger = ExecutionMode{Mode: api.ExecutionModePixelCenterInteger}
	DepthReplacing     = ExecutionMode{Mode: api.ExecutionModeDepthReplacing}
)

// operandCount returns how many literals the mode takes.
func operandCount(m api.ExecutionMode) int {
	switch m {
	case api.ExecutionModeLocalSize, api.ExecutionModeLocalSizeHint:
		return 3
	case api.ExecutionModeInvocations:
		return 1
	}
	return 0
}

// ParameterKind is where the value of an entry point parameter comes from.
type ParameterKind uint8

const (
	// ParameterKindFunction is an ordinary parameter. Entry points cannot have one.
	ParameterKindFunction ParameterKind = iota
	// ParameterKindInput reads a stage input at a location.
	ParameterKindInput
	// ParameterKindOutput is a pointer to a stage output at a location.
	ParameterKindOutput
	// ParameterKindDescriptorSet reads a buffer bound at a descriptor set and binding.
	ParameterKindDescriptorSet
)

// String implements fmt.Stringer.
func (k ParameterKind) String() string {
	switch k {
	case ParameterKindInput:
		return "input"
	case ParameterKindOutput:
		return "output"
	case ParameterKindDescriptorSet:
		return "descriptor_set"
	}
	return "function_parameter"
}

// ParameterType overrides the WebAssembly type of a parameter.
type ParameterType struct {
	// Scalar is the element type: api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32 or api.ValueTypeF64.
	Scalar api.ValueType
	// StructuredArray means the parameter is the address of a runtime array of Scalar, not a Scalar.
	StructuredArray bool
}

// Parameter configures one parameter of an entry point.
type Parameter struct {
	// Type is nil to use the WebAssembly type.
	Type *ParameterType
	Kind ParameterKind
	// Location is the location of an Input or Output parameter.
	Location uint32
	// StorageClass, Set and Binding are the descriptor of a DescriptorSet parameter.
	StorageClass api.StorageClass
	Set          uint32
	Binding      uint32
}

// FunctionParameter returns an ordinary parameter.
func FunctionParameter() Parameter { return Parameter{} }

// InputParameter returns a parameter read from the stage input at location.
func InputParameter(location uint32) Parameter {
	return Parameter{Kind: ParameterKindInput, Location: location}
}

// OutputParameter returns a parameter that is the address of the stage output at location.
func OutputParameter(location uint32) Parameter {
	return Parameter{Kind: ParameterKindOutput, Location: location}
}

// DescriptorSetParameter returns a parameter read from a buffer in the storage class, bound at set and binding.
func DescriptorSetParameter(storageClass api.StorageClass, set, binding uint32) Parameter {
	return Parameter{Kind: ParameterKindDescriptorSet, StorageClass: storageClass, Set: set, Binding: binding}
}

// WithScalar overrides the type with a scalar.
func (p Parameter) WithScalar(t api.ValueType) Parameter {
	p.Type = &ParameterType{Scalar: t}
	return p
}

// WithStructuredArray makes the parameter the address of a runtime array of t.
func (p Parameter) WithStructuredArray(t api.ValueType) Parameter {
	p.Type = &ParameterType{Scalar: t, StructuredArray: true}
	return p
}

// IsStructuredArray returns true if the parameter is the address of a runtime array.
func (p Parameter) IsStructuredArray() bool {
	return p.Type != nil && p.Type.StructuredArray
}

func (p Parameter) validate(field string) error {
	if p.Type != nil {
		switch p.Type.Scalar {
		case api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64:
		default:
			return &api.ConfigError{Field: field + ".type", Err: fmt.Errorf("invalid scalar type %#x", p.Type.Scalar)}
		}
	}

	switch p.Kind {
	case ParameterKindFunction, ParameterKindInput, ParameterKindOutput:
		if p.IsStructuredArray() {
			return &api.ConfigError{Field: field + ".type", Err: fmt.Errorf("a structured array must be a descriptor set parameter, not %s", p.Kind)}
		}
	case ParameterKindDescriptorSet:
		switch p.StorageClass {
		case api.StorageClassStorageBuffer, api.StorageClassUniform:
		case api.StorageClassPushConstant:
			if p.IsStructuredArray() {
				return &api.ConfigError{Field: field + ".type", Err: errors.New("a structured array cannot be a push constant")}
			}
		default:
			return &api.ConfigError{Field: field + ".kind", Err: fmt.Errorf("storage class %s cannot hold a descriptor", p.StorageClass)}
		}
	default:
		return &api.ConfigError{Field: field + ".kind", Err: fmt.Errorf("unknown parameter kind %d", p.Kind)}
	}
	return nil
}

func (p Parameter) requiredCapabilities() []api.Capability {
	switch p.Kind {
	case ParameterKindInput:
		return storageClassCapabilities(api.StorageClassInput)
	case ParameterKindOutput:
		return storageClassCapabilities(api.StorageClassOutput)
	case ParameterKindDescriptorSet:
		return storageClassCapabilities(p.StorageClass)
	}
	return nil
}

// FunctionConfig configures one function. Each With method returns a modified copy.
type FunctionConfig struct {
	executionModel *api.ExecutionModel
	executionModes []ExecutionMode
	params         map[uint32]Parameter
}

// NewFunctionConfig returns a configuration that changes nothing.
func NewFunctionConfig() *FunctionConfig {
	return &FunctionConfig{params: map[uint32]Parameter{}}
}

func (f *FunctionConfig) clone() *FunctionConfig {
	ret := &FunctionConfig{
		executionModel: f.executionModel,
		executionModes: append([]ExecutionMode(nil), f.executionModes...),
		params:         make(map[uint32]Parameter, len(f.params)),
	}
	for i, p := range f.params {
		ret.params[i] = p
	}
	return ret
}

// WithExecutionModel makes the function an entry point of the given stage.
func (f *FunctionConfig) WithExecutionModel(m api.ExecutionModel) *FunctionConfig {
	ret := f.clone()
	ret.executionModel = &m
	return ret
}

// WithExecutionMode appends an execution mode.
func (f *FunctionConfig) WithExecutionMode(mode ExecutionMode) *FunctionConfig {
	ret := f.clone()
	mode.Operands = append([]uint32(nil), mode.Operands...)
	ret.executionModes = append(ret.executionModes, mode)
	return ret
}

// WithParam configures the parameter at index.
func (f *FunctionConfig) WithParam(index uint32, p Parameter) *FunctionConfig {
	ret := f.clone()
	if p.Type != nil {
		t := *p.Type
		p.Type = &t
	}
	ret.params[index] = p
	return ret
}

// ExecutionModel returns the stage of an entry point, or false if the function is not one.
func (f *FunctionConfig) ExecutionModel() (api.ExecutionModel, bool) {
	if f.executionModel == nil {
		return 0, false
	}
	return *f.executionModel, true
}

// ExecutionModes returns the execution modes in the order they were added.
func (f *FunctionConfig) ExecutionModes() []ExecutionMode {
	return append([]ExecutionMode(nil), f.executionModes...)
}

// Param returns the configuration of the parameter at index, FunctionParameter if not configured.
func (f *FunctionConfig) Param(index uint32) Parameter {
	return f.params[index]
}

// ParamIndexes returns the configured parameter indexes in ascending order.
func (f *FunctionConfig) ParamIndexes() []uint32 {
	ret := make([]uint32, 0, len(f.params))
	for i := range f.params {
		ret = append(ret, i)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

func (f *FunctionConfig) validate(field string) error {
	for j, mode := range f.executionModes {
		if want := operandCount(mode.Mode); len(mode.Operands) != want {
			return &api.ConfigError{
				Field: fmt.Sprintf("%s.execution_modes.%d", field, j),
				Err:   fmt.Errorf("%s takes %d operands, but has %d", mode.Mode, want, len(mode.Operands)),
			}
		}
	}
	for _, i := range f.ParamIndexes() {
		if err := f.params[i].validate(fmt.Sprintf("%s.params.%d", field, i)); err != nil {
			return err
		}
	}
	return nil
}

func (f *FunctionConfig) requiredCapabilities() []api.Capability {
	var ret []api.Capability
	if m, ok := f.ExecutionModel(); ok {
		ret = append(ret, executionModelCapabilities(m)...)
	}
	for _, mode := range f.executionModes {
		ret = append(ret, executionModeCapabilities(mode.Mode)...)
	}
	for _, i := range f.ParamIndexes() {
		ret = append(ret, f.params[i].requiredCapabilities()...)
	}
	return ret
}
