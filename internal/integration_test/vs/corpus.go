package vs

import (
	"github.com/tetratelabs/wasm2spirv/api"
	"github.com/tetratelabs/wasm2spirv/config"
)

// fixture is a module in the text format and the config it is compiled with.
type fixture struct {
	name   string
	wat    string
	config func() *config.Builder
}

func vulkan() *config.Builder {
	return config.NewBuilder(config.Vulkan(1, 1), config.Dynamic(), nil,
		api.AddressingModelLogical, api.MemoryModelGLSL450)
}

func compute(index uint32, params ...config.Parameter) func() *config.Builder {
	return func() *config.Builder {
		fc := config.NewFunctionConfig().
			WithExecutionModel(api.ExecutionModelGLCompute).
			WithExecutionMode(config.LocalSize(64, 1, 1))
		for i, p := range params {
			fc = fc.WithParam(uint32(i), p)
		}
		return vulkan().WithFunction(index, fc)
	}
}

var corpus = []fixture{
	{
		name: "f32 add",
		wat: `(module
  (func (export "add") (param f32 f32) (result f32)
    (f32.add (local.get 0) (local.get 1))))`,
		config: vulkan,
	},
	{
		name: "loop",
		wat: `(module
  (func (export "sum") (param $n i32) (result i32) (local $acc i32)
    (block $done
      (loop $next
        (br_if $done (i32.eqz (local.get $n)))
        (local.set $acc (i32.add (local.get $acc) (local.get $n)))
        (local.set $n (i32.sub (local.get $n) (i32.const 1)))
        (br $next)))
    (local.get $acc)))`,
		config: vulkan,
	},
	{
		name: "br_table",
		wat: `(module
  (func (export "classify") (param i32) (result i32)
    (block $c
      (block $b
        (block $a
          (br_table $a $b $c (local.get 0)))
        (return (i32.const 10)))
      (return (i32.const 20)))
    (i32.const 30)))`,
		config: vulkan,
	},
	{
		name: "i64",
		wat: `(module
  (func (export "bits") (param i64) (result i64)
    (i64.add (i64.popcnt (local.get 0)) (i64.rotl (local.get 0) (i64.const 7)))))`,
		config: vulkan,
	},
	{
		name: "f64",
		wat: `(module
  (func (export "hypot") (param f64 f64) (result f64)
    (f64.sqrt (f64.add (f64.mul (local.get 0) (local.get 0)) (f64.mul (local.get 1) (local.get 1))))))`,
		config: vulkan,
	},
	{
		name: "globals and select",
		wat: `(module
  (global $count (mut i32) (i32.const 0))
  (global $limit i32 (i32.const 100))
  (func (export "bump") (param i32) (result i32)
    (global.set $count (i32.add (global.get $count) (local.get 0)))
    (select (global.get $limit) (global.get $count)
      (i32.gt_u (global.get $count) (global.get $limit)))))`,
		config: vulkan,
	},
	{
		name: "calls",
		wat: `(module
  (func $square (param i32) (result i32)
    (i32.mul (local.get 0) (local.get 0)))
  (func (export "sum_of_squares") (param i32 i32) (result i32)
    (i32.add (call $square (local.get 0)) (call $square (local.get 1)))))`,
		config: vulkan,
	},
	{
		name: "memory",
		wat: `(module
  (import "spir_global" "gl_GlobalInvocationID" (func $gid (param i32) (result i32)))
  (memory 1)
  (data (i32.const 16) "\01\00\00\00\02\00\00\00")
  (func (export "main") (local $addr i32)
    (local.set $addr (i32.shl (call $gid (i32.const 0)) (i32.const 2)))
    (i32.store (local.get $addr)
      (i32.mul (i32.load offset=16 (local.get $addr)) (i32.const 2)))))`,
		config: compute(1),
	},
	{
		name: "structured array",
		wat: `(module
  (import "spir_global" "gl_GlobalInvocationID" (func $gid (param i32) (result i32)))
  (memory 1)
  (func (export "scale") (param $data i32) (local $addr i32)
    (local.set $addr (i32.add (local.get $data)
      (i32.shl (call $gid (i32.const 0)) (i32.const 2))))
    (f32.store (local.get $addr) (f32.mul (f32.load (local.get $addr)) (f32.const 2)))))`,
		config: compute(1, config.DescriptorSetParameter(api.StorageClassStorageBuffer, 0, 0).
			WithStructuredArray(api.ValueTypeF32)),
	},
}
