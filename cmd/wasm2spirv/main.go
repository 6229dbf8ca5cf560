package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wasm2spirv"
	"github.com/tetratelabs/wasm2spirv/api"
	"github.com/tetratelabs/wasm2spirv/config"
	"github.com/tetratelabs/wasm2spirv/internal/spirv"
	"github.com/tetratelabs/wasm2spirv/internal/version"
)

func main() {
	doMain(os.Stdout, os.Stderr, os.Exit)
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut io.Writer, stdErr io.Writer, exit func(code int)) {
	flag.CommandLine.SetOutput(stdErr)

	var help bool
	flag.BoolVar(&help, "h", false, "print usage")

	flag.Parse()

	if help || flag.NArg() == 0 {
		printUsage(stdErr)
		exit(0)
	}

	subCmd := flag.Arg(0)
	switch subCmd {
	case "compile":
		doCompile(flag.Args()[1:], stdOut, stdErr, exit)
	case "asm":
		doAsm(flag.Args()[1:], stdOut, stdErr, exit)
	case "version":
		fmt.Fprintln(stdOut, version.GetVersion())
		exit(0)
	default:
		fmt.Fprintln(stdErr, "invalid command")
		printUsage(stdErr)
		exit(1)
	}
}

func doCompile(args []string, stdOut io.Writer, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("compile", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	configPath := flags.String("config", "", "JSON or YAML file describing the target and entry points. "+
		"Defaults to Vulkan 1.1 with dynamic capabilities, logical addressing and no entry points.")
	outPath := flags.String("o", "", "file to write the SPIR-V to. Defaults to stdout.")

	var assembly bool
	flags.BoolVar(&assembly, "S", false, "write SPIR-V assembly instead of the binary")

	var optimize bool
	flags.BoolVar(&optimize, "O", false, "fold constants and remove dead code")

	var logScopes logScopesFlag
	flags.Var(&logScopes, "log",
		"A comma-separated list of compilation stages to trace to stderr. "+
			"This may be specified multiple times. Supported values: decode,build,emit,optimize,all")

	_ = flags.Parse(args)

	if help {
		printCompileUsage(stdErr, flags)
		exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to wasm file")
		printCompileUsage(stdErr, flags)
		exit(1)
	}
	wasmPath := flags.Arg(0)

	wasm, err := os.ReadFile(wasmPath)
	if err != nil {
		fmt.Fprintf(stdErr, "error reading wasm binary: %v\n", err)
		exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "invalid config: %v\n", err)
		exit(1)
	}

	c, err := wasm2spirv.Compile(cfg, wasm, wasm2spirv.WithLogger(stdErr, wasm2spirv.LogScopes(logScopes)))
	if err != nil {
		fmt.Fprintf(stdErr, "error compiling wasm binary: %v\n", err)
		exit(1)
	}
	if optimize {
		c = c.Optimized()
	}

	var out []byte
	if assembly {
		out = []byte(c.Assembly())
	} else {
		out = c.Bytes()
	}
	writeOutput(*outPath, out, stdOut, stdErr, exit)
	exit(0)
}

func doAsm(args []string, stdOut io.Writer, stdErr io.Writer, exit func(code int)) {
	flags := flag.NewFlagSet("asm", flag.ExitOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "print usage")

	outPath := flags.String("o", "", "file to write the result to. Defaults to stdout.")

	var disassemble bool
	flags.BoolVar(&disassemble, "d", false, "disassemble a SPIR-V binary instead of assembling text")

	_ = flags.Parse(args)

	if help {
		printAsmUsage(stdErr, flags)
		exit(0)
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to SPIR-V file")
		printAsmUsage(stdErr, flags)
		exit(1)
	}

	in, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(stdErr, "error reading SPIR-V: %v\n", err)
		exit(1)
	}

	var out []byte
	if disassemble {
		m, err := spirv.ParseBytes(in)
		if err != nil {
			fmt.Fprintf(stdErr, "error parsing SPIR-V binary: %v\n", err)
			exit(1)
		}
		out = []byte(spirv.Disassemble(m))
	} else {
		words, err := spirv.Assemble(string(in))
		if err != nil {
			fmt.Fprintf(stdErr, "error assembling SPIR-V: %v\n", err)
			exit(1)
		}
		m, err := spirv.Parse(words)
		if err != nil {
			fmt.Fprintf(stdErr, "error assembling SPIR-V: %v\n", err)
			exit(1)
		}
		out = m.Bytes()
	}
	writeOutput(*outPath, out, stdOut, stdErr, exit)
	exit(0)
}

// loadConfig parses the config file at path by its extension. An empty path is the default config.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.NewBuilder(config.Vulkan(1, 1), config.Dynamic(), nil,
			api.AddressingModelLogical, api.MemoryModelGLSL450).Build()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return config.ParseYAML(data)
	default:
		return config.ParseJSON(data)
	}
}

func writeOutput(path string, out []byte, stdOut io.Writer, stdErr io.Writer, exit func(code int)) {
	if path == "" {
		if _, err := stdOut.Write(out); err != nil {
			fmt.Fprintf(stdErr, "error writing output: %v\n", err)
			exit(1)
		}
		return
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		fmt.Fprintf(stdErr, "error writing output: %v\n", err)
		exit(1)
	}
}

func printUsage(stdErr io.Writer) {
	fmt.Fprintln(stdErr, "wasm2spirv CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  wasm2spirv <command>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Commands:")
	fmt.Fprintln(stdErr, "  compile\tCompiles a WebAssembly binary to SPIR-V")
	fmt.Fprintln(stdErr, "  asm\t\tAssembles or disassembles SPIR-V")
	fmt.Fprintln(stdErr, "  version\tDisplays the version of wasm2spirv CLI")
}

func printCompileUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "wasm2spirv CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  wasm2spirv compile <options> <path to wasm file>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}

func printAsmUsage(stdErr io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(stdErr, "wasm2spirv CLI")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Usage:\n  wasm2spirv asm <options> <path to SPIR-V file>")
	fmt.Fprintln(stdErr)
	fmt.Fprintln(stdErr, "Options:")
	flags.PrintDefaults()
}

type logScopesFlag wasm2spirv.LogScopes

func (f *logScopesFlag) String() string {
	return wasm2spirv.LogScopes(*f).String()
}

func (f *logScopesFlag) Set(input string) error {
	scopes, err := wasm2spirv.ParseLogScopes(input)
	if err != nil {
		return err
	}
	*f |= logScopesFlag(scopes)
	return nil
}
