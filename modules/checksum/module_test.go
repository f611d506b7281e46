package checksum

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avikov/forgerig/internal/action"
)

func setup(t *testing.T) (*action.Registry, *action.BuildEnv) {
	t.Helper()
	registry := action.NewRegistry()
	(&Module{}).Register(registry)
	return registry, &action.BuildEnv{OutDir: t.TempDir()}
}

func TestChecksum(t *testing.T) {
	t.Run("write then verify round-trips", func(t *testing.T) {
		registry, env := setup(t)
		require.NoError(t, os.WriteFile(filepath.Join(env.OutDir, "lib.so"), []byte("artifact"), 0o644))

		write := action.NewChecksum(action.ChecksumInput{Paths: []string{"lib.so"}})
		res, err := registry.Execute(context.Background(), env, write)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(env.OutDir, DefaultManifest), res.Output)

		verify := action.NewChecksum(action.ChecksumInput{Paths: []string{"lib.so"}, Verify: true})
		_, err = registry.Execute(context.Background(), env, verify)
		assert.NoError(t, err)
	})

	t.Run("verify fails on a flipped byte", func(t *testing.T) {
		registry, env := setup(t)
		path := filepath.Join(env.OutDir, "lib.so")
		require.NoError(t, os.WriteFile(path, []byte("artifact"), 0o644))

		write := action.NewChecksum(action.ChecksumInput{Paths: []string{"lib.so"}})
		_, err := registry.Execute(context.Background(), env, write)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(path, []byte("artifacU"), 0o644))

		verify := action.NewChecksum(action.ChecksumInput{Paths: []string{"lib.so"}, Verify: true})
		_, err = registry.Execute(context.Background(), env, verify)
		assert.ErrorContains(t, err, "checksum mismatch for lib.so")
	})

	t.Run("verify fails for an unlisted artifact", func(t *testing.T) {
		registry, env := setup(t)
		require.NoError(t, os.WriteFile(filepath.Join(env.OutDir, "a"), []byte("a"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(env.OutDir, "b"), []byte("b"), 0o644))

		write := action.NewChecksum(action.ChecksumInput{Paths: []string{"a"}})
		_, err := registry.Execute(context.Background(), env, write)
		require.NoError(t, err)

		verify := action.NewChecksum(action.ChecksumInput{Paths: []string{"b"}, Verify: true})
		_, err = registry.Execute(context.Background(), env, verify)
		assert.ErrorContains(t, err, "not listed in manifest")
	})

	t.Run("manifest honors the version placeholder", func(t *testing.T) {
		registry, env := setup(t)
		env.Version.Major = 5
		require.NoError(t, os.WriteFile(filepath.Join(env.OutDir, "lib-5.0.0.so"), []byte("x"), 0o644))

		write := action.NewChecksum(action.ChecksumInput{
			Paths:    []string{"lib-{version}.so"},
			Manifest: "CHECKSUMS-{version}.b3",
		})
		res, err := registry.Execute(context.Background(), env, write)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(env.OutDir, "CHECKSUMS-5.0.0.b3"), res.Output)
	})
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	first, err := HashFile(path)
	require.NoError(t, err)
	second, err := HashFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64) // 32-byte digest, hex-encoded
}
