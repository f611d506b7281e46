package version

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dpiHeader = `// Sample client library header.
#ifndef DPI_PUBLIC
#define DPI_PUBLIC

#define DPI_MAJOR_VERSION   5
#define DPI_MINOR_VERSION   0
#define DPI_PATCH_LEVEL     2

#endif
`

func TestExtract(t *testing.T) {
	t.Run("well-formed header", func(t *testing.T) {
		v, err := Extract(dpiHeader, DefaultMarkers)
		require.NoError(t, err)
		assert.Equal(t, Version{Major: 5, Minor: 0, Patch: 2}, v)
	})

	t.Run("line order does not matter", func(t *testing.T) {
		text := "#define PATCH_LEVEL 9\nnoise\n#define MAJOR_VERSION 1\n#define MINOR_VERSION 4\n"
		v, err := Extract(text, DefaultMarkers)
		require.NoError(t, err)
		assert.Equal(t, Version{Major: 1, Minor: 4, Patch: 9}, v)
	})

	t.Run("surrounding unrelated lines are ignored", func(t *testing.T) {
		text := "/* license */\n#define OTHER 77\n#define MAJOR_VERSION 2\n#define MINOR_VERSION 3\n#define PATCH_LEVEL 4\ntrailing junk 123\n"
		v, err := Extract(text, DefaultMarkers)
		require.NoError(t, err)
		assert.Equal(t, Version{Major: 2, Minor: 3, Patch: 4}, v)
	})

	t.Run("first occurrence of a marker wins", func(t *testing.T) {
		text := "#define MAJOR_VERSION 1\n#define MINOR_VERSION 2\n#define PATCH_LEVEL 3\n#define MAJOR_VERSION 99\n"
		v, err := Extract(text, DefaultMarkers)
		require.NoError(t, err)
		assert.Equal(t, uint(1), v.Major)
	})

	t.Run("missing marker fails as a whole", func(t *testing.T) {
		// Major and minor present, patch absent: this must not produce (5,6,0).
		text := "#define MAJOR_VERSION 5\n#define MINOR_VERSION 6\n"
		_, err := Extract(text, DefaultMarkers)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrVersionNotFound)
		assert.ErrorContains(t, err, "matched 2 of 3")
	})

	t.Run("marker line without integer fails with attribution", func(t *testing.T) {
		text := "#define MAJOR_VERSION_X\n#define MINOR_VERSION 6\n#define PATCH_LEVEL 7\n"
		_, err := Extract(text, DefaultMarkers)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNumberNotFound)

		var numErr *NumberError
		require.ErrorAs(t, err, &numErr)
		assert.Equal(t, "MAJOR_VERSION", numErr.Marker)
	})

	t.Run("substring match accepts larger identifiers", func(t *testing.T) {
		// Over-matching is the documented default behaviour.
		text := "#define ODPIC_MAJOR_VERSION 8\n#define ODPIC_MINOR_VERSION 1\n#define ODPIC_PATCH_LEVEL 0\n"
		v, err := Extract(text, DefaultMarkers)
		require.NoError(t, err)
		assert.Equal(t, Version{Major: 8, Minor: 1, Patch: 0}, v)
	})

	t.Run("first integer token on the line is used", func(t *testing.T) {
		text := "#define MAJOR_VERSION 3 // was 2\n#define MINOR_VERSION 1\n#define PATCH_LEVEL 0\n"
		v, err := Extract(text, DefaultMarkers)
		require.NoError(t, err)
		assert.Equal(t, uint(3), v.Major)
	})

	t.Run("empty marker is rejected", func(t *testing.T) {
		_, err := Extract(dpiHeader, Markers{Major: "MAJOR_VERSION", Minor: "", Patch: "PATCH_LEVEL"})
		assert.ErrorContains(t, err, "must not be empty")
	})
}

func TestExtractStrict(t *testing.T) {
	t.Run("requires whole-token markers", func(t *testing.T) {
		text := "#define ODPIC_MAJOR_VERSION 8\n#define ODPIC_MINOR_VERSION 1\n#define ODPIC_PATCH_LEVEL 0\n"
		_, err := ExtractStrict(text, DefaultMarkers)
		assert.ErrorIs(t, err, ErrVersionNotFound)
	})

	t.Run("accepts exact tokens", func(t *testing.T) {
		text := "#define MAJOR_VERSION 8\n#define MINOR_VERSION 1\n#define PATCH_LEVEL 0\n"
		v, err := ExtractStrict(text, DefaultMarkers)
		require.NoError(t, err)
		assert.Equal(t, Version{Major: 8, Minor: 1, Patch: 0}, v)
	})
}

func TestFromFile(t *testing.T) {
	t.Run("reads and extracts", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dpi.h")
		require.NoError(t, os.WriteFile(path, []byte(dpiHeader), 0o644))

		v, err := FromFile(path, DefaultMarkers)
		require.NoError(t, err)
		assert.Equal(t, Version{Major: 5, Minor: 0, Patch: 2}, v)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := FromFile(filepath.Join(t.TempDir(), "absent.h"), DefaultMarkers)
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "v5.0.2", Version{Major: 5, Minor: 0, Patch: 2}.String())
	assert.Equal(t, "v1.0.0", Default.String())
}
