package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/demoseed/bos"
	"github.com/nomis52/demoseed/bos/memstore"
	"github.com/nomis52/demoseed/config"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `target:
  url: http://platform.test
  database: demo
modules: [company]
demo:
  today: "2024-06-14"
logging:
  output: ` + filepath.Join(dir, "demoseed.log") + `
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func usePlatform(t *testing.T, store *memstore.Store, err error) {
	t.Helper()
	orig := connect
	connect = func(context.Context, *config.Config, *slog.Logger) (bos.Service, error) {
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	t.Cleanup(func() { connect = orig })
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "demoseed")
	assert.Contains(t, out, "demoseed dev (commit unknown")
}

func TestValidateCmd(t *testing.T) {
	out, err := execute(t, "validate", "-c", writeConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "configuration valid")
	assert.Contains(t, out, "modules: company")
	assert.Contains(t, out, "schedule: 0 3 * * *")

	_, err = execute(t, "validate")
	assert.Error(t, err, "the config flag is required")

	_, err = execute(t, "validate", "-c", "/nonexistent.yaml")
	assert.Error(t, err)
}

func TestRunCmd(t *testing.T) {
	store := memstore.NewPlatform()
	usePlatform(t, store, nil)

	out, err := execute(t, "run", "-c", writeConfig(t), "-m", "party", "--seed", "42")
	require.NoError(t, err)
	assert.Equal(t, 4, store.Count("party.party"))
	assert.Contains(t, out, "Parties")
	assert.Contains(t, out, "3 customers, 1 suppliers (4 created)")
	assert.NotContains(t, out, "CompanyPost", "disabled steps are not listed")
	assert.Contains(t, out, "seed 42")
}

func TestRunCmd_ConnectError(t *testing.T) {
	usePlatform(t, nil, errors.New("login refused"))

	out, err := execute(t, "run", "-c", writeConfig(t), "-d", "other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login refused")
	assert.Contains(t, out, "took")
}

func TestRunCmd_InvalidOverride(t *testing.T) {
	_, err := execute(t, "run", "-c", writeConfig(t), "--today", "14/06/2024")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}
