package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data", "db")

	require.False(t, Exists(dir))
	require.False(t, Exists(""))
	require.NoError(t, EnsureDir(dir))
	require.True(t, Exists(dir))
	require.NoError(t, EnsureDir(dir))
}

func TestReadJSON(t *testing.T) {
	dir := t.TempDir()

	var v struct {
		Name string `json:"name"`
	}

	err := ReadJSON(filepath.Join(dir, "missing.json"), &v)
	require.True(t, errors.Is(err, ErrNotFound))

	path := filepath.Join(dir, "governance.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"commons"}`), 0644))
	require.NoError(t, ReadJSON(path, &v))
	require.Equal(t, "commons", v.Name)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))
	require.Error(t, ReadJSON(path, &v))
}

func TestSetEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	require.NoError(t, SetEnv(path, "BRIDGE_PRIVATE_KEY", "aa"))
	require.NoError(t, os.WriteFile(path, []byte("RPC_URL=http://localhost:8545\nBRIDGE_PRIVATE_KEY=aa\n"), 0600))
	require.NoError(t, SetEnv(path, "BRIDGE_PRIVATE_KEY", "bb"))

	env, err := godotenv.Read(path)
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"RPC_URL":            "http://localhost:8545",
		"BRIDGE_PRIVATE_KEY": "bb",
	}, env)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
