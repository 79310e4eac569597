package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRootCommand(t *testing.T) {
	root := GetRootCommand()
	require.NotNil(t, root)
	assert.Equal(t, "fleetlens", root.Use)
}

func TestSubcommandsRegistered(t *testing.T) {
	root := GetRootCommand()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["scan"])
	assert.True(t, names["batch"])
	assert.True(t, names["serve"])
}

func TestPersistentFlags(t *testing.T) {
	root := GetRootCommand()

	for _, name := range []string{"config", "verbose", "log-level", "remote", "api-key", "format", "output"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "missing persistent flag %s", name)
	}
}
