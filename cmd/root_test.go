package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

func TestRootCommandHelp(t *testing.T) {
	// Test help flag
	cmd := rootCmd
	b := bytes.NewBufferString("")
	cmd.SetOut(b)
	cmd.SetErr(b)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	assert.NoError(t, err)

	output := b.String()
	assert.Contains(t, output, "Available Commands:")
	assert.Contains(t, output, "cluster-up")
	assert.Contains(t, output, "cluster-down")
	assert.Contains(t, output, "create-tables")
	assert.Contains(t, output, "load")
	assert.Contains(t, output, "etl")
	assert.Contains(t, output, "analyze")
}

func TestInvalidCommand(t *testing.T) {
	// Test invalid command
	cmd := rootCmd
	b := bytes.NewBufferString("")
	cmd.SetOut(b)
	cmd.SetErr(b)
	cmd.SetArgs([]string{"invalid-command"})

	err := cmd.Execute()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestConfigFlagRegistered(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	assert.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestAllFlagsHaveUsage(t *testing.T) {
	for _, cmd := range rootCmd.Commands() {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			assert.NotEmpty(t, f.Usage, "flag --%s on %s", f.Name, cmd.Name())
		})
	}
}

func TestETLForceFlagRegistered(t *testing.T) {
	flag := etlCmd.Flags().Lookup("force")
	assert.NotNil(t, flag)
}

func TestDestructiveCommandsHaveYesFlag(t *testing.T) {
	for _, cmd := range []string{"create-tables", "cluster-down"} {
		sub, _, err := rootCmd.Find([]string{cmd})
		assert.NoError(t, err)
		assert.NotNil(t, sub.Flags().Lookup("yes"), "command %s", cmd)
	}
}

func TestCommandsFailFastWithoutConfig(t *testing.T) {
	// Every data-touching command loads configuration first; a missing file
	// is a fatal startup error before any external call is made.
	tests := []string{"create-tables", "load", "etl", "analyze"}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := rootCmd
			b := bytes.NewBufferString("")
			cmd.SetOut(b)
			cmd.SetErr(b)
			args := []string{name, "--config", "does-not-exist.cfg"}
			if name == "create-tables" {
				args = append(args, "--yes")
			}
			cmd.SetArgs(args)

			err := cmd.Execute()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "not found")
		})
	}
}
