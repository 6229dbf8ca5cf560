// Package config describes the SPIR-V target of a compilation: platform and version, addressing and memory
// models, capabilities, extensions, WebAssembly features and per-function entry point settings.
//
// Configs are built once with NewBuilder or parsed with ParseJSON or ParseYAML, and are read-only
// afterwards, so one Config can be shared by concurrent compilations.
package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tetratelabs/wasm2spirv/api"
)

// Platform is the environment that consumes the SPIR-V module.
type Platform uint8

const (
	// PlatformUniversal targets a SPIR-V version directly.
	PlatformUniversal Platform = iota
	// PlatformVulkan targets a Vulkan version, which decides the SPIR-V version.
	PlatformVulkan
)

// String implements fmt.Stringer.
func (p Platform) String() string {
	if p == PlatformVulkan {
		return "Vulkan"
	}
	return "Universal"
}

// Target is a platform and its version.
type Target struct {
	Platform     Platform
	Major, Minor uint8
}

// Vulkan returns a Vulkan target.
func Vulkan(major, minor uint8) Target {
	return Target{Platform: PlatformVulkan, Major: major, Minor: minor}
}

// Universal returns a target of SPIR-V major.minor.
func Universal(major, minor uint8) Target {
	return Target{Platform: PlatformUniversal, Major: major, Minor: minor}
}

// String implements fmt.Stringer.
func (t Target) String() string {
	return fmt.Sprintf("%s %d.%d", t.Platform, t.Major, t.Minor)
}

// Version is a SPIR-V version.
type Version struct {
	Major, Minor uint8
}

// String implements fmt.Stringer.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// spirvVersion maps Vulkan 1.0 to SPIR-V 1.0, 1.1 to 1.3, 1.2 to 1.5 and later versions to 1.6. Universal
// versions are used as is.
func (t Target) spirvVersion() (Version, error) {
	switch t.Platform {
	case PlatformVulkan:
		if t.Major != 1 {
			return Version{}, fmt.Errorf("unsupported Vulkan version %d.%d", t.Major, t.Minor)
		}
		switch {
		case t.Minor >= 3:
			return Version{1, 6}, nil
		case t.Minor == 2:
			return Version{1, 5}, nil
		case t.Minor == 1:
			return Version{1, 3}, nil
		}
		return Version{1, 0}, nil
	case PlatformUniversal:
		if t.Major != 1 || t.Minor > 6 {
			return Version{}, fmt.Errorf("unsupported SPIR-V version %d.%d", t.Major, t.Minor)
		}
		return Version{t.Major, t.Minor}, nil
	}
	return Version{}, fmt.Errorf("unknown platform %d", t.Platform)
}

// CapabilityModelKind decides who chooses the capabilities of a module.
type CapabilityModelKind uint8

const (
	// CapabilityModelDynamic declares the listed capabilities plus every capability the module needs.
	CapabilityModelDynamic CapabilityModelKind = iota
	// CapabilityModelStatic declares exactly the listed capabilities. Compilation fails if the module needs
	// one that is neither listed nor implied by a listed one.
	CapabilityModelStatic
)

// String implements fmt.Stringer.
func (k CapabilityModelKind) String() string {
	if k == CapabilityModelStatic {
		return "static"
	}
	return "dynamic"
}

// CapabilityModel is a capability list and how to treat it.
type CapabilityModel struct {
	Kind CapabilityModelKind
	List []api.Capability
}

// Static returns a CapabilityModelStatic model.
func Static(capabilities ...api.Capability) CapabilityModel {
	return CapabilityModel{Kind: CapabilityModelStatic, List: capabilities}
}

// Dynamic returns a CapabilityModelDynamic model whose list is declared even if unused.
func Dynamic(capabilities ...api.Capability) CapabilityModel {
	return CapabilityModel{Kind: CapabilityModelDynamic, List: capabilities}
}

// Allows returns true if a module may use c: always under the dynamic model, otherwise when c is listed
// or implied by a listed capability.
func (m CapabilityModel) Allows(c api.Capability) bool {
	if m.Kind == CapabilityModelDynamic {
		return true
	}
	for _, declared := range m.List {
		if implies(declared, c) {
			return true
		}
	}
	return false
}

// Features are the WebAssembly proposals beyond 1.0 that the decoder and compiler accept. Memory64 only
// lets the decoder read 64-bit memories: the compiler reports them as unsupported.
type Features struct {
	Memory64             bool
	SaturatingFloatToInt bool
	SignExtension        bool
}

// DefaultFeatures enables the finished proposals: sign extension and saturating float to int.
func DefaultFeatures() Features {
	return Features{SaturatingFloatToInt: true, SignExtension: true}
}

// MemoryGrowError is what memory.grow compiles to. A GPU cannot grow a buffer.
type MemoryGrowError uint8

const (
	// MemoryGrowErrorSoft compiles memory.grow to the constant -1, which means the growth failed.
	MemoryGrowErrorSoft MemoryGrowError = iota
	// MemoryGrowErrorHard fails compilation on memory.grow.
	MemoryGrowErrorHard
)

// String implements fmt.Stringer.
func (e MemoryGrowError) String() string {
	if e == MemoryGrowErrorHard {
		return "hard"
	}
	return "soft"
}

// Config is a validated, read-only compilation target. Use NewBuilder or a parse function to create one.
type Config struct {
	target          Target
	version         Version
	addressing      api.AddressingModel
	memory          api.MemoryModel
	capabilities    CapabilityModel
	extensions      []string
	features        Features
	memoryGrowError MemoryGrowError
	functions       map[uint32]*FunctionConfig
}

// Target returns the platform and its version.
func (c *Config) Target() Target { return c.target }

// SPIRVVersion returns the version of the SPIR-V module to produce.
func (c *Config) SPIRVVersion() Version { return c.version }

// AddressingModel returns how linear memory is addressed.
func (c *Config) AddressingModel() api.AddressingModel { return c.addressing }

// MemoryModel returns the SPIR-V memory model.
func (c *Config) MemoryModel() api.MemoryModel { return c.memory }

// Capabilities returns the capability model. The list is deduplicated, in first occurrence order.
func (c *Config) Capabilities() CapabilityModel {
	return CapabilityModel{Kind: c.capabilities.Kind, List: append([]api.Capability(nil), c.capabilities.List...)}
}

// Extensions returns the SPIR-V extensions to declare.
func (c *Config) Extensions() []string { return append([]string(nil), c.extensions...) }

// Features returns the enabled WebAssembly features.
func (c *Config) Features() Features { return c.features }

// MemoryGrowError returns what memory.grow compiles to.
func (c *Config) MemoryGrowError() MemoryGrowError { return c.memoryGrowError }

// Function returns the configuration of the function at the given index, counting imported functions.
func (c *Config) Function(index uint32) (*FunctionConfig, bool) {
	f, ok := c.functions[index]
	return f, ok
}

// FunctionIndexes returns the indexes of every configured function in ascending order.
func (c *Config) FunctionIndexes() []uint32 {
	ret := make([]uint32, 0, len(c.functions))
	for i := range c.functions {
		ret = append(ret, i)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// RequiredCapabilities returns the capabilities the configuration needs regardless of the module: those
// of the addressing model, the memory model and every configured entry point.
func (c *Config) RequiredCapabilities() []api.Capability {
	var ret []api.Capability
	ret = append(ret, addressingModelCapabilities(c.addressing)...)
	ret = append(ret, memoryModelCapabilities(c.memory)...)
	for _, i := range c.FunctionIndexes() {
		ret = append(ret, c.functions[i].requiredCapabilities()...)
	}
	return dedupe(ret)
}

// Builder accumulates the settings of a Config. Each With method returns a modified copy, so a Builder
// can be reused as a template.
type Builder struct {
	cfg Config
}

// NewBuilder returns a Builder with the required settings. Features default to DefaultFeatures and
// memory.grow to MemoryGrowErrorSoft.
func NewBuilder(target Target, capabilities CapabilityModel, extensions []string, addressing api.AddressingModel, memory api.MemoryModel) *Builder {
	return &Builder{cfg: Config{
		target:       target,
		addressing:   addressing,
		memory:       memory,
		capabilities: CapabilityModel{Kind: capabilities.Kind, List: append([]api.Capability(nil), capabilities.List...)},
		extensions:   append([]string(nil), extensions...),
		features:     DefaultFeatures(),
		functions:    map[uint32]*FunctionConfig{},
	}}
}

// clone ensures the maps and slices of the copy are not shared.
func (b *Builder) clone() *Builder {
	ret := &Builder{cfg: b.cfg}
	ret.cfg.capabilities.List = append([]api.Capability(nil), b.cfg.capabilities.List...)
	ret.cfg.extensions = append([]string(nil), b.cfg.extensions...)
	ret.cfg.functions = make(map[uint32]*FunctionConfig, len(b.cfg.functions))
	for i, f := range b.cfg.functions {
		ret.cfg.functions[i] = f
	}
	return ret
}

// WithMemoryGrowError sets what memory.grow compiles to.
func (b *Builder) WithMemoryGrowError(kind MemoryGrowError) *Builder {
	ret := b.clone()
	ret.cfg.memoryGrowError = kind
	return ret
}

// WithFeatures replaces the enabled WebAssembly features.
func (b *Builder) WithFeatures(features Features) *Builder {
	ret := b.clone()
	ret.cfg.features = features
	return ret
}

// WithFunction configures the function at the given index, counting imported functions. A function with an
// execution model becomes an entry point.
func (b *Builder) WithFunction(index uint32, f *FunctionConfig) *Builder {
	ret := b.clone()
	ret.cfg.functions[index] = f.clone()
	return ret
}

// Build validates the settings and returns the Config. Errors are *api.ConfigError naming the field.
func (b *Builder) Build() (*Config, error) {
	cfg := b.clone().cfg

	v, err := cfg.target.spirvVersion()
	if err != nil {
		return nil, &api.ConfigError{Field: "platform.version", Err: err}
	}
	cfg.version = v

	switch {
	case cfg.target.Platform == PlatformVulkan && cfg.addressing == api.AddressingModelPhysical:
		return nil, &api.ConfigError{Field: "addressing_model", Err: errors.New("Vulkan does not support Physical addressing")}
	case cfg.target.Platform == PlatformUniversal && cfg.addressing == api.AddressingModelPhysicalStorageBuffer:
		return nil, &api.ConfigError{Field: "addressing_model", Err: errors.New("PhysicalStorageBuffer addressing requires the Vulkan platform")}
	case cfg.addressing > api.AddressingModelPhysicalStorageBuffer:
		return nil, &api.ConfigError{Field: "addressing_model", Err: fmt.Errorf("unknown addressing model %d", cfg.addressing)}
	}

	for _, i := range cfg.FunctionIndexes() {
		if err := cfg.functions[i].validate(fmt.Sprintf("functions.%d", i)); err != nil {
			return nil, err
		}
	}

	cfg.capabilities.List = dedupe(cfg.capabilities.List)
	if cfg.capabilities.Kind == CapabilityModelStatic {
		for _, c := range cfg.RequiredCapabilities() {
			if !cfg.capabilities.Allows(c) {
				return nil, &api.ConfigError{Field: "capabilities", Err: fmt.Errorf("%w: %s", api.ErrMissingCapability, c)}
			}
		}
	}
	return &cfg, nil
}

func dedupe(in []api.Capability) []api.Capability {
	seen := make(map[api.Capability]struct{}, len(in))
	ret := in[:0:0]
	for _, c := range in {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		ret = append(ret, c)
	}
	return ret
}
