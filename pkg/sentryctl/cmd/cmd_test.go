package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandStructure(t *testing.T) {
	root := NewRootCommand()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"login", "logout", "alerts", "cameras", "version"} {
		assert.True(t, names[want], "missing %q subcommand", want)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rt := &runtimeState{writer: &out}

	cmd := newVersionCommand(rt)
	cmd.Run(cmd, nil)

	assert.Contains(t, out.String(), "sentry-management-server")
}

func TestBuildClientRequiresToken(t *testing.T) {
	rt := &runtimeState{server: "http://localhost:9", writer: &bytes.Buffer{}}
	_, err := rt.buildClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestBuildClientUsesTokenOverride(t *testing.T) {
	rt := &runtimeState{
		server:        "http://localhost:9",
		tokenOverride: "tok",
		writer:        &bytes.Buffer{},
	}
	c, err := rt.buildClient()
	require.NoError(t, err)
	assert.NotNil(t, c)
}
