// Package version reports the version of this module from the build info of the running binary.
package version

import "runtime/debug"

const modulePath = "github.com/tetratelabs/wasm2spirv"

// Default is returned when the version is unknown, such as in tests or a build from a source checkout.
const Default = "dev"

// GetVersion returns the version of this module the binary was built with.
func GetVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Default
	}
	return fromBuildInfo(info)
}

func fromBuildInfo(info *debug.BuildInfo) string {
	if info.Main.Path == modulePath {
		return orDefault(info.Main.Version)
	}
	for _, dep := range info.Deps {
		if dep.Path != modulePath {
			continue
		}
		if dep.Replace != nil {
			return orDefault(dep.Replace.Version)
		}
		return orDefault(dep.Version)
	}
	return Default
}

func orDefault(v string) string {
	if v == "" || v == "(devel)" {
		return Default
	}
	return v
}
