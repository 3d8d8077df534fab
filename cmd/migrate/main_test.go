package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("NEURALIZARD_HOME", home)
	t.Setenv("CONFIG_PATH", filepath.Join(home, "missing.yaml"))
	t.Setenv("DB_URL", "sqlite://"+filepath.Join(home, "schema.db"))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Help(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"up", "down", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestMigrateLifecycle(t *testing.T) {
	setup(t)

	steps := []struct {
		name string
		args []string
		want string
	}{
		{"fresh version", []string{"version"}, "Schema version 0 (dirty=false)"},
		{"up", []string{"up"}, "Migrations applied"},
		{"version after up", []string{"version"}, "Schema version 2 (dirty=false)"},
		{"up is idempotent", []string{"up"}, "Migrations applied"},
		{"down", []string{"down"}, "Migrations rolled back"},
		{"version after down", []string{"version"}, "Schema version 0 (dirty=false)"},
		{"bare root runs up", nil, "Migrations applied"},
	}
	for _, tt := range steps {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, "Migrating sqlite database...")
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestUnknownArgsRejected(t *testing.T) {
	setup(t)
	_, err := run(t, "down", "extra")
	assert.Error(t, err)

	code := execute(func() *cobra.Command {
		cmd := newRootCmd()
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetErr(new(bytes.Buffer))
		cmd.SetArgs([]string{"sideways"})
		return cmd
	}())
	assert.Equal(t, 1, code)
}
