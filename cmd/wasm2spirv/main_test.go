package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetratelabs/wasm2spirv/internal/spirv"
	"github.com/tetratelabs/wasm2spirv/internal/version"
	"github.com/tetratelabs/wasm2spirv/internal/wasm"
	"github.com/tetratelabs/wasm2spirv/internal/wasm/binary"
)

const computeJSON = `{
  "platform": {"vulkan": {"major": 1, "minor": 2}},
  "addressing_model": "logical",
  "memory_model": "GLSL450",
  "capabilities": {"dynamic": ["Shader"]},
  "functions": {"0": {"execution_model": "GLCompute", "execution_modes": [{"local_size": [8, 8, 1]}]}}
}`

const computeYAML = `
platform:
  vulkan: {major: 1, minor: 2}
addressing_model: logical
memory_model: GLSL450
capabilities:
  dynamic: [Shader]
functions:
  "0":
    execution_model: GLCompute
    execution_modes:
      - local_size: [8, 8, 1]
`

// writeTestdata writes a wasm binary with an exported function "main", and the config files for it.
func writeTestdata(t *testing.T) (wasmPath, jsonPath, yamlPath string) {
	dir := t.TempDir()
	bin := binary.EncodeModule(&wasm.Module{
		TypeSection:     []*wasm.FunctionType{{}},
		FunctionSection: []wasm.Index{0},
		CodeSection:     []*wasm.Code{{Body: []byte{wasm.OpcodeNop, wasm.OpcodeEnd}}},
		ExportSection:   []*wasm.Export{{Type: wasm.ExternTypeFunc, Name: "main", Index: 0}},
	})
	wasmPath = filepath.Join(dir, "main.wasm")
	require.NoError(t, os.WriteFile(wasmPath, bin, 0o600))
	jsonPath = filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(computeJSON), 0o600))
	yamlPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(computeYAML), 0o600))
	return
}

func TestCompile(t *testing.T) {
	wasmPath, jsonPath, yamlPath := writeTestdata(t)

	t.Run("binary", func(t *testing.T) {
		exitCode, stdOut, stdErr := runMain(t, []string{"compile", "-config", jsonPath, wasmPath})
		require.Equal(t, 0, exitCode, stdErr)
		require.Equal(t, []byte{0x03, 0x02, 0x23, 0x07}, []byte(stdOut[:4]))

		m, err := spirv.ParseBytes([]byte(stdOut))
		require.NoError(t, err)
		require.NoError(t, m.Validate())
		require.Equal(t, spirv.Version1_5, m.Version)
	})

	t.Run("assembly", func(t *testing.T) {
		exitCode, stdOut, _ := runMain(t, []string{"compile", "-config", yamlPath, "-S", wasmPath})
		require.Equal(t, 0, exitCode)
		require.Contains(t, stdOut, "; Version: 1.5\n")
		require.Contains(t, stdOut, `OpEntryPoint GLCompute %`)
		require.Contains(t, stdOut, "LocalSize 8 8 1\n")
	})

	t.Run("default config", func(t *testing.T) {
		exitCode, stdOut, _ := runMain(t, []string{"compile", "-S", wasmPath})
		require.Equal(t, 0, exitCode)
		require.Contains(t, stdOut, "; Version: 1.3\n")
		require.NotContains(t, stdOut, "OpEntryPoint")
	})

	t.Run("output file", func(t *testing.T) {
		outPath := filepath.Join(t.TempDir(), "main.spv")
		exitCode, stdOut, _ := runMain(t, []string{"compile", "-config", jsonPath, "-O", "-o", outPath, wasmPath})
		require.Equal(t, 0, exitCode)
		require.Empty(t, stdOut)

		out, err := os.ReadFile(outPath)
		require.NoError(t, err)
		_, err = spirv.ParseBytes(out)
		require.NoError(t, err)
	})

	t.Run("log", func(t *testing.T) {
		exitCode, _, stdErr := runMain(t, []string{"compile", "-log", "decode,build", "-O", "-S", wasmPath})
		require.Equal(t, 0, exitCode)
		require.Contains(t, stdErr, "[decode] ")
		require.Contains(t, stdErr, "[build] ")
		require.NotContains(t, stdErr, "[optimize] ")
	})
}

func TestAsm(t *testing.T) {
	wasmPath, jsonPath, _ := writeTestdata(t)
	_, text, _ := runMain(t, []string{"compile", "-config", jsonPath, "-S", wasmPath})

	textPath := filepath.Join(t.TempDir(), "main.spvasm")
	require.NoError(t, os.WriteFile(textPath, []byte(text), 0o600))
	spvPath := filepath.Join(t.TempDir(), "main.spv")

	exitCode, _, stdErr := runMain(t, []string{"asm", "-o", spvPath, textPath})
	require.Equal(t, 0, exitCode, stdErr)

	exitCode, stdOut, _ := runMain(t, []string{"asm", "-d", spvPath})
	require.Equal(t, 0, exitCode)
	require.Equal(t, text, stdOut)
}

func TestVersion(t *testing.T) {
	exitCode, stdOut, _ := runMain(t, []string{"version"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, version.GetVersion()+"\n", stdOut)
}

func TestHelp(t *testing.T) {
	exitCode, _, stdErr := runMain(t, []string{"-h"})
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdErr, "wasm2spirv CLI\n\nUsage:")
}

func TestErrors(t *testing.T) {
	wasmPath, _, _ := writeTestdata(t)
	dir := t.TempDir()

	notWasmPath := filepath.Join(dir, "bears.wasm")
	require.NoError(t, os.WriteFile(notWasmPath, []byte("pooh"), 0o600))
	badConfigPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badConfigPath, []byte(`{"addressing_model": "logical"}`), 0o600))
	notSPIRVPath := filepath.Join(dir, "bears.spvasm")
	require.NoError(t, os.WriteFile(notSPIRVPath, []byte("OpBears\n"), 0o600))

	tests := []struct {
		message string
		args    []string
	}{
		{
			message: "invalid command",
			args:    []string{"run"},
		},
		{
			message: "missing path to wasm file",
			args:    []string{"compile"},
		},
		{
			message: "error reading wasm binary",
			args:    []string{"compile", "non-existent.wasm"},
		},
		{
			message: "error compiling wasm binary: decode: invalid wasm binary",
			args:    []string{"compile", notWasmPath},
		},
		{
			message: "invalid config: ",
			args:    []string{"compile", "-config", badConfigPath, wasmPath},
		},
		{
			message: "missing path to SPIR-V file",
			args:    []string{"asm"},
		},
		{
			message: "error assembling SPIR-V: line 1",
			args:    []string{"asm", notSPIRVPath},
		},
		{
			message: "error parsing SPIR-V binary",
			args:    []string{"asm", "-d", notWasmPath},
		},
	}

	for _, tc := range tests {
		tt := tc
		t.Run(tt.message, func(t *testing.T) {
			exitCode, _, stdErr := runMain(t, tt.args)

			require.Equal(t, 1, exitCode)
			require.Contains(t, stdErr, tt.message)
		})
	}
}

func runMain(t *testing.T, args []string) (int, string, string) {
	t.Helper()
	oldArgs := os.Args
	t.Cleanup(func() {
		os.Args = oldArgs
	})
	os.Args = append([]string{"wasm2spirv"}, args...)

	var exitCode int
	stdOut := &bytes.Buffer{}
	stdErr := &bytes.Buffer{}
	var exited bool
	func() {
		defer func() {
			if r := recover(); r != nil {
				exited = true
			}
		}()
		flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
		doMain(stdOut, stdErr, func(code int) {
			exitCode = code
			panic(code)
		})
	}()

	require.True(t, exited)

	return exitCode, stdOut.String(), stdErr.String()
}
