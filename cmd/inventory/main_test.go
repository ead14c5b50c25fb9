package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		cfgFile = ""
		migrateBatchSize = 0
	})

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCmd(t *testing.T) {
	out := execute(t, "version")
	assert.Equal(t, "inventory v"+Version+"\n", out)
}

func TestGenkeyCmd(t *testing.T) {
	out := strings.TrimSpace(execute(t, "genkey"))
	assert.Len(t, out, 43)
}

func TestMigrateNamesCmd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "database:\n  path: " + filepath.Join(dir, "inventory.db") + "\n" +
		"auth:\n  jwt_secret: cli-test-secret-cli-test-secret-0000\n" +
		"obfuscation:\n  passphrase: cli-test-passphrase-0001\n" +
		"logs:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	out := execute(t, "migrate-names", "--config", path, "--batch-size", "10")
	assert.Equal(t, "scanned=0 migrated=0 skipped=0\n", out)
}

// TestRootCmd_SilencesErrors 错误由 main 统一输出，cobra 不重复打印
func TestRootCmd_SilencesErrors(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"migrate-names", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		cfgFile = ""
	})

	require.Error(t, rootCmd.Execute())
	assert.Empty(t, out.String())
}
