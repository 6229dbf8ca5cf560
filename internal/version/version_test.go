package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBuildInfo(t *testing.T) {
	tests := []struct {
		name     string
		info     *debug.BuildInfo
		expected string
	}{
		{
			name:     "main module",
			info:     &debug.BuildInfo{Main: debug.Module{Path: modulePath, Version: "v0.3.0"}},
			expected: "v0.3.0",
		},
		{
			name:     "main module from source",
			info:     &debug.BuildInfo{Main: debug.Module{Path: modulePath, Version: "(devel)"}},
			expected: Default,
		},
		{
			name: "dependency",
			info: &debug.BuildInfo{
				Main: debug.Module{Path: "example.com/app"},
				Deps: []*debug.Module{{Path: "github.com/pkg/errors", Version: "v0.9.1"}, {Path: modulePath, Version: "v0.2.1"}},
			},
			expected: "v0.2.1",
		},
		{
			name: "replaced dependency",
			info: &debug.BuildInfo{
				Main: debug.Module{Path: "example.com/app"},
				Deps: []*debug.Module{{Path: modulePath, Version: "v0.2.1", Replace: &debug.Module{Path: "../", Version: ""}}},
			},
			expected: Default,
		},
		{
			name:     "not a dependency",
			info:     &debug.BuildInfo{Main: debug.Module{Path: "example.com/app"}},
			expected: Default,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, fromBuildInfo(tc.info))
		})
	}
}

func TestGetVersion(t *testing.T) {
	// A test binary is built from source.
	require.Equal(t, Default, GetVersion())
}
