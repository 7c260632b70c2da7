package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd", "-a", "http://127.0.0.1:9090", "-i", "10", "-t", "2s"},
			expected: &Config{ServerURL: "http://127.0.0.1:9090", OnlineCheckInterval: 10 * time.Second, RequestTimeout: 2 * time.Second}},
		{name: "foreign flags are ignored", args: []string{"cmd", "-c", "x.json", "-a", "http://h"},
			expected: &Config{ServerURL: "http://h"}},
		{name: "incorrect check interval", args: []string{"cmd", "-i", "abc"}, expectPanic: true},
		{name: "incorrect timeout", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origArgs := os.Args
			t.Cleanup(func() { os.Args = origArgs })
			os.Args = tt.args

			config := &Config{}
			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
