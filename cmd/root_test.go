package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{
		"list", "read", "write", "sample", "adjust",
		"save", "restore", "describe", "serve", "shell", "version",
	}
	have := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, have[name], "missing subcommand %s", name)
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3-test")
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, buf.String(), "1.2.3-test")
}

func TestParseTuple(t *testing.T) {
	name, domain, idx, err := parseTuple([]string{"FREQ", "package", "1"})
	require.NoError(t, err)
	assert.Equal(t, "FREQ", name)
	assert.Equal(t, "package", domain.String())
	assert.Equal(t, 1, idx)

	_, _, _, err = parseTuple([]string{"FREQ", "rack", "1"})
	assert.Error(t, err)

	_, _, _, err = parseTuple([]string{"FREQ", "package", "one"})
	assert.Error(t, err)
}
