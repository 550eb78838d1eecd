package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFS_HasGooseFiles(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.Len(t, names, 2)
	for _, n := range names {
		b, err := FS.ReadFile(n)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(string(b), "-- +goose Up"), n)
		require.Contains(t, string(b), "-- +goose Down", n)
	}
}
