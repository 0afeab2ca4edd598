package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600))
	return path
}

func TestQuoteCmd(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "mot",
			args: []string{"quote", "--service", "mot"},
			want: "price:    £40.00",
		},
		{
			name: "full service diesel combo",
			args: []string{"quote", "--service", "Full Service", "--cc", "2000", "--fuel", "diesel", "--combo"},
			want: "price:    £234.00",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			root := newRootCmd()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs(append([]string{"--config", writeConfig(t)}, tc.args...))

			require.NoError(t, root.Execute())
			assert.Contains(t, out.String(), tc.want)
		})
	}
}

func TestQuoteCmd_UnknownService(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", writeConfig(t), "quote", "--service", "valet"})

	assert.Error(t, root.Execute())
}

func TestRootCmd_MissingConfig(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml"), "migrate"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
