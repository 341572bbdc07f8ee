package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/formguard"
	"github.com/aretw0/formguard/internal/config"
	"github.com/aretw0/formguard/internal/logging"
	"github.com/aretw0/formguard/internal/testutils"
	"github.com/aretw0/formguard/pkg/adapters/memory"
	"github.com/aretw0/formguard/pkg/adapters/redis"
	"github.com/aretw0/formguard/pkg/catalog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args, restoring every flag to its
// default first since the command tree is package state.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "formguard version "+strings.TrimSpace(formguard.Version)+"\n", out)
}

func TestList(t *testing.T) {
	out, err := execute(t, "", "list")
	require.NoError(t, err)
	for _, name := range catalog.Default().Names() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "cross-field rules")
}

func TestDescribe(t *testing.T) {
	out, err := execute(t, "", "describe", catalog.AuthLogin)
	require.NoError(t, err)
	assert.Contains(t, out, "# auth.login")
	assert.Contains(t, out, "| `username` | string | required | trimmed, min length 3 |")
	assert.Contains(t, out, "default `false`")

	out, err = execute(t, "", "describe", catalog.USSDMenu, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "`items[].label`")
	assert.Contains(t, out, "## Cross-field rules")
	assert.Contains(t, out, "on `items[].target`")

	out, err = execute(t, "", "describe", catalog.Role, "-f", "json")
	require.NoError(t, err)
	var d map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, "object", d["kind"])

	out, err = execute(t, "", "describe", catalog.Role, "-f", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "kind: object")

	out, err = execute(t, "", "describe", catalog.Role, "-f", "openapi")
	require.NoError(t, err)
	assert.Contains(t, out, `"type": "object"`)

	_, err = execute(t, "", "describe", catalog.Role, "-f", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = execute(t, "", "describe", "nope")
	assert.ErrorIs(t, err, formguard.ErrUnknownEntity)
}

func TestValidate(t *testing.T) {
	valid := testutils.WriteFile(t, "login.json", `{"username":"alice","password":"pw"}`)
	out, err := execute(t, "", "validate", catalog.AuthLogin, valid)
	require.NoError(t, err)
	assert.Equal(t, "auth.login: valid\n", out)

	mismatch := testutils.WriteFile(t, "change.yaml", "currentPassword: old-secret1\nnewPassword: abc12345\nconfirmPassword: xyz99999\n")
	out, err = execute(t, "", "validate", catalog.AuthChangePassword, mismatch)
	assert.ErrorIs(t, err, errInvalid)
	assert.Equal(t, "auth.change_password: invalid\n  confirmPassword: Passwords don't match!\n", out)
}

func TestValidate_StdinAndOptions(t *testing.T) {
	out, err := execute(t, `{"username":"alice","password":"pw","extra":true}`,
		"validate", catalog.AuthLogin, "-", "--strict", "-o", "json")
	assert.ErrorIs(t, err, errInvalid)
	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, false, resp["valid"])

	// Flags do not leak between runs.
	out, err = execute(t, `{"username":"alice","password":"pw","extra":true}`,
		"validate", catalog.AuthLogin, "-")
	require.NoError(t, err)
	assert.Equal(t, "auth.login: valid\n", out)

	_, err = execute(t, "username: alice\n", "validate", catalog.AuthLogin, "-", "--input-format", "yaml")
	assert.ErrorIs(t, err, errInvalid)

	_, err = execute(t, `{`, "validate", catalog.AuthLogin, "-")
	assert.ErrorContains(t, err, "failed to parse JSON payload")

	_, err = execute(t, "", "validate", catalog.AuthLogin, filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_Definitions(t *testing.T) {
	defs := testutils.WriteFile(t, "branch.yaml", `entities:
  - name: branch
    fields:
      - {name: code, type: string, pattern: '^[A-Z]{3}$', message: Branch code must be three capitals}
`)
	out, err := execute(t, `{"code":"kla"}`, "validate", "branch", "-", "--definitions", defs)
	assert.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "code: Branch code must be three capitals")

	_, err = execute(t, `{"code":"KLA"}`, "validate", "branch", "-")
	assert.ErrorIs(t, err, formguard.ErrUnknownEntity)
}

func TestNewCache(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewNop()

	cache, closeFn, err := newCache(ctx, config.Server{}, logger)
	require.NoError(t, err)
	assert.Nil(t, cache)
	closeFn()

	cache, closeFn, err = newCache(ctx, config.Server{CacheTTL: time.Minute, CacheSize: 8}, logger)
	require.NoError(t, err)
	assert.IsType(t, &memory.Cache{}, cache)
	closeFn()

	mr := miniredis.RunT(t)
	cache, closeFn, err = newCache(ctx, config.Server{CacheTTL: time.Minute, RedisAddr: mr.Addr()}, logger)
	require.NoError(t, err)
	assert.IsType(t, &redis.Cache{}, cache)
	require.NoError(t, cache.Set(ctx, "k", []byte("v")))
	closeFn()

	gone, err := miniredis.Run()
	require.NoError(t, err)
	addr := gone.Addr()
	gone.Close()
	_, _, err = newCache(ctx, config.Server{CacheTTL: time.Minute, RedisAddr: addr}, logger)
	assert.ErrorContains(t, err, "redis cache unavailable")
}

func TestServerConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("FORMGUARD_ADDR", ":7000")
	t.Setenv("FORMGUARD_LOG_FORMAT", "json")

	resetFlags(rootCmd)
	require.NoError(t, serveCmd.ParseFlags([]string{"--addr", ":9000", "--cache-ttl", "0s"}))
	t.Cleanup(func() { resetFlags(rootCmd) })

	cfg, err := serverConfig(serveCmd)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.CacheEnabled())
}
