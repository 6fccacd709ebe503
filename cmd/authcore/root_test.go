// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "authcore", cmd.Use)

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "migrate")
	assert.Contains(t, names, "sweep")

	flag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag, "config flag missing")
	assert.Equal(t, "", flag.DefValue)
}

func TestRootCmd_Help(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "authentication service")
	assert.Contains(t, out.String(), "serve")
}

func TestServeCmd_Flags(t *testing.T) {
	cmd := NewServeCmd()

	for _, name := range []string{
		"server.addr",
		"server.metrics_addr",
		"db.url",
		"log.level",
		"log.format",
		"sweep.interval",
		"auto-migrate",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
}
