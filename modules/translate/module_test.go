package translate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avikov/forgerig/internal/action"
	"github.com/avikov/forgerig/internal/testutil"
)

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "demo.out"), OutputPath("out", "src/demo.c", ""))
	assert.Equal(t, filepath.Join("out", "demo.go"), OutputPath("out", "src/demo.c", ".go"))
	assert.Equal(t, filepath.Join("out", "noext.out"), OutputPath("out", "noext", ""))
}

func TestTranslateUnit(t *testing.T) {
	registry := action.NewRegistry()
	(&Module{}).Register(registry)

	t.Run("runs the toolchain over one unit", func(t *testing.T) {
		tools := testutil.NewFakeToolchain()
		env := &action.BuildEnv{
			SourceDir: t.TempDir(),
			OutDir:    t.TempDir(),
			Tools:     tools,
		}

		spec := action.NewTranslate(action.TranslateInput{
			Source:      "demo.c",
			OutDir:      "translated",
			IncludeDirs: []string{"include"},
			Suffix:      ".go",
		})
		res, err := registry.Execute(context.Background(), env, spec)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(env.OutDir, "translated", "demo.go"), res.Output)
		assert.FileExists(t, res.Output)

		require.Equal(t, 1, tools.TranslateCount())
		job := tools.TranslateJobs[0]
		assert.Equal(t, filepath.Join(env.SourceDir, "demo.c"), job.Source)
		assert.Equal(t, []string{filepath.Join(env.SourceDir, "include")}, job.IncludeDirs)
	})

	t.Run("failure names the unit's source", func(t *testing.T) {
		tools := testutil.NewFakeToolchain()
		tools.FailTranslate["bad.c"] = true
		env := &action.BuildEnv{SourceDir: t.TempDir(), OutDir: t.TempDir(), Tools: tools}

		spec := action.NewTranslate(action.TranslateInput{Source: "bad.c", OutDir: "translated"})
		_, err := registry.Execute(context.Background(), env, spec)
		assert.ErrorContains(t, err, "bad.c")
	})

	t.Run("no toolchain is a configuration error", func(t *testing.T) {
		env := &action.BuildEnv{SourceDir: t.TempDir(), OutDir: t.TempDir()}
		spec := action.NewTranslate(action.TranslateInput{Source: "demo.c", OutDir: "translated"})
		_, err := registry.Execute(context.Background(), env, spec)
		assert.ErrorContains(t, err, "no toolchain configured")
	})
}
