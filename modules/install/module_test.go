package install

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avikov/forgerig/internal/action"
	"github.com/avikov/forgerig/internal/version"
)

func setup(t *testing.T) (*action.Registry, *action.BuildEnv) {
	t.Helper()
	registry := action.NewRegistry()
	(&Module{}).Register(registry)
	return registry, &action.BuildEnv{
		SourceDir:  t.TempDir(),
		OutDir:     t.TempDir(),
		InstallDir: t.TempDir(),
		Version:    version.Version{Major: 5, Minor: 0, Patch: 2},
	}
}

func TestInstallFile(t *testing.T) {
	t.Run("installs a built artifact into a directory", func(t *testing.T) {
		registry, env := setup(t)
		require.NoError(t, os.WriteFile(filepath.Join(env.OutDir, "libdemo.so.5.0.2"), []byte("lib"), 0o644))

		spec := action.NewInstall(action.InstallInput{
			Source: "libdemo.so.{version}",
			Dest:   "lib/",
		})
		res, err := registry.Execute(context.Background(), env, spec)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(env.InstallDir, "lib", "libdemo.so.5.0.2"), res.Output)
		assert.FileExists(t, res.Output)
	})

	t.Run("falls back to the source tree for headers", func(t *testing.T) {
		registry, env := setup(t)
		require.NoError(t, os.MkdirAll(filepath.Join(env.SourceDir, "include"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(env.SourceDir, "include", "dpi.h"), []byte("#define X"), 0o644))

		spec := action.NewInstall(action.InstallInput{
			Source: filepath.Join("include", "dpi.h"),
			Dest:   "include/",
		})
		res, err := registry.Execute(context.Background(), env, spec)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(env.InstallDir, "include", "dpi.h"))
		assert.Equal(t, filepath.Join(env.InstallDir, "include", "dpi.h"), res.Output)
	})

	t.Run("renames when dest is a file path", func(t *testing.T) {
		registry, env := setup(t)
		require.NoError(t, os.WriteFile(filepath.Join(env.OutDir, "libdemo.so.5.0.2"), []byte("lib"), 0o644))

		spec := action.NewInstall(action.InstallInput{
			Source: "libdemo.so.5.0.2",
			Dest:   filepath.Join("lib", "libdemo.so"),
		})
		res, err := registry.Execute(context.Background(), env, spec)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(env.InstallDir, "lib", "libdemo.so"), res.Output)
	})

	t.Run("honors an explicit mode", func(t *testing.T) {
		registry, env := setup(t)
		require.NoError(t, os.WriteFile(filepath.Join(env.OutDir, "tool"), []byte("bin"), 0o644))

		spec := action.NewInstall(action.InstallInput{
			Source: "tool",
			Dest:   "bin/",
			Mode:   0o755,
		})
		res, err := registry.Execute(context.Background(), env, spec)
		require.NoError(t, err)

		info, err := os.Stat(res.Output)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	})

	t.Run("missing source fails with attribution", func(t *testing.T) {
		registry, env := setup(t)

		spec := action.NewInstall(action.InstallInput{Source: "nope.so", Dest: "lib/"})
		_, err := registry.Execute(context.Background(), env, spec)
		assert.ErrorContains(t, err, "source nope.so not found")
	})
}
