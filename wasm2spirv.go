// Package wasm2spirv compiles WebAssembly 1.0 (20191205) binaries into SPIR-V modules for GPU execution.
//
// Ex.
//	cfg, _ := config.NewBuilder(config.Vulkan(1, 1), config.Dynamic(), nil,
//		api.AddressingModelLogical, api.MemoryModelGLSL450).
//		WithFunction(0, config.NewFunctionConfig().
//			WithExecutionModel(api.ExecutionModelGLCompute).
//			WithExecutionMode(config.LocalSize(64, 1, 1))).
//		Build()
//	compilation, _ := wasm2spirv.Compile(cfg, wasm)
//	spv := compilation.Bytes()
//
// See https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html
package wasm2spirv

import (
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/tetratelabs/wasm2spirv/config"
	"github.com/tetratelabs/wasm2spirv/internal/compiler"
	"github.com/tetratelabs/wasm2spirv/internal/logging"
	"github.com/tetratelabs/wasm2spirv/internal/optimizer"
	"github.com/tetratelabs/wasm2spirv/internal/spirv"
	"github.com/tetratelabs/wasm2spirv/internal/wasm/binary"
)

// LogScopes selects the compilation stages that WithLogger traces.
type LogScopes = logging.LogScopes

const (
	LogScopeNone     = logging.LogScopeNone
	LogScopeDecode   = logging.LogScopeDecode
	LogScopeBuild    = logging.LogScopeBuild
	LogScopeEmit     = logging.LogScopeEmit
	LogScopeOptimize = logging.LogScopeOptimize
	LogScopeAll      = logging.LogScopeAll
)

// ParseLogScopes parses a comma-separated list of scopes: decode, build, emit, optimize or all.
func ParseLogScopes(input string) (LogScopes, error) {
	return logging.ParseLogScopes(input)
}

// Option configures a call to Compile.
type Option func(*options)

type options struct {
	logger *logging.Logger
}

// WithLogger traces the given scopes to w, one line per event. Nothing is logged by default.
func WithLogger(w io.Writer, scopes LogScopes) Option {
	return func(o *options) {
		o.logger = logging.NewLogger(w, scopes)
	}
}

// Compile decodes wasm and compiles it as configured by cfg.
//
// Errors wrap one of *api.DecodeError, *api.BuildError or *api.EmitError, with the failed stage prefixed to the
// message. Use errors.As to inspect them. No partial result is returned.
func Compile(cfg *config.Config, wasm []byte, opts ...Option) (*Compilation, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	m, err := binary.DecodeModule(wasm, compiler.WasmFeatures(cfg.Features()))
	if err != nil {
		return nil, errors.WithMessage(err, "decode")
	}
	if o.logger.IsEnabled(logging.LogScopeDecode) {
		o.logger.Logf(logging.LogScopeDecode, "%d bytes: %d types, %d imports, %d functions, %d exports",
			len(wasm), len(m.TypeSection), len(m.ImportSection), len(m.FunctionSection), len(m.ExportSection))
	}

	module, err := compiler.Compile(cfg, m, o.logger)
	if err != nil {
		return nil, errors.WithMessage(err, "compile")
	}
	if o.logger.IsEnabled(logging.LogScopeEmit) {
		o.logger.Logf(logging.LogScopeEmit, "SPIR-V %s: %d instructions, bound %d",
			module.Version, module.Len(), module.Bound)
	}
	return &Compilation{cfg: cfg, module: module, logger: o.logger}, nil
}

// Compilation is an immutable compiled module. It is safe for concurrent use.
type Compilation struct {
	cfg    *config.Config
	module *spirv.Module
	logger *logging.Logger

	optimizeOnce sync.Once
	optimized    *Compilation
}

// Config returns the configuration the module was compiled with.
func (c *Compilation) Config() *config.Config {
	return c.cfg
}

// Words returns the SPIR-V binary as 32-bit words.
func (c *Compilation) Words() []uint32 {
	return c.module.Words()
}

// Bytes returns the SPIR-V binary in little-endian byte order, as written to a .spv file.
func (c *Compilation) Bytes() []byte {
	return c.module.Bytes()
}

// Assembly returns the SPIR-V text form, one instruction per line.
func (c *Compilation) Assembly() string {
	return spirv.Disassemble(c.module)
}

// Optimized returns an equivalent compilation with constants folded and dead code removed. The result is
// computed once.
func (c *Compilation) Optimized() *Compilation {
	c.optimizeOnce.Do(func() {
		c.optimized = &Compilation{cfg: c.cfg, module: optimizer.Optimize(c.module, c.logger), logger: c.logger}
	})
	return c.optimized
}

// CrossCompile translates the module to a shading language using cc.
func (c *Compilation) CrossCompile(cc CrossCompiler, lang Language) (string, error) {
	if cc == nil {
		return "", errors.Errorf("no cross compiler for %s", lang)
	}
	source, err := cc.CrossCompile(lang, c.Words())
	if err != nil {
		return "", errors.WithMessagef(err, "cross compile to %s", lang)
	}
	return source, nil
}
