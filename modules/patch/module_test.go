package patch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avikov/forgerig/internal/action"
)

const shim = `#ifdef _WIN32
    #include <windows.h>
#else
    #include <unistd.h>
#endif`

func TestApply(t *testing.T) {
	t.Run("prepends the header once", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "demo.c")
		require.NoError(t, os.WriteFile(path, []byte("int main(void) { return 0; }\n"), 0o644))

		applied, err := Apply(path, shim, shim)
		require.NoError(t, err)
		assert.True(t, applied)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, shim+"\n\nint main(void) { return 0; }\n", string(content))
	})

	t.Run("second apply is a no-op", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "demo.c")
		require.NoError(t, os.WriteFile(path, []byte("int x;\n"), 0o644))

		_, err := Apply(path, shim, shim)
		require.NoError(t, err)
		before, err := os.ReadFile(path)
		require.NoError(t, err)

		applied, err := Apply(path, shim, shim)
		require.NoError(t, err)
		assert.False(t, applied)

		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, string(before), string(after))
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Apply(filepath.Join(t.TempDir(), "nope.c"), shim, shim)
		assert.Error(t, err)
	})
}

func TestHandlerRun(t *testing.T) {
	registry := action.NewRegistry()
	(&Module{}).Register(registry)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.c"), []byte("int a;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.c"), []byte("int b;\n"), 0o644))

	env := &action.BuildEnv{SourceDir: dir}
	spec := action.NewPatch(action.PatchInput{
		Files:  []string{"a.c", "b.c"},
		Header: shim,
	})

	_, err := registry.Execute(context.Background(), env, spec)
	require.NoError(t, err)

	for _, name := range []string{"a.c", "b.c"} {
		content, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.True(t, len(content) > len(shim))
	}

	// Re-running the whole action leaves the files unchanged.
	before, _ := os.ReadFile(filepath.Join(dir, "a.c"))
	_, err = registry.Execute(context.Background(), env, spec)
	require.NoError(t, err)
	after, _ := os.ReadFile(filepath.Join(dir, "a.c"))
	assert.Equal(t, string(before), string(after))
}
