package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAOFAppendAndReplay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appendonly.aof")

	a, err := Open(path, FsyncAlways)
	require.NoError(t, err)

	require.NoError(t, a.Append([]string{"SET", "foo", "bar"}))
	require.NoError(t, a.Append([]string{"SET", "baz", "qux"}))
	require.NoError(t, a.Close())

	var replayed [][]string
	n, err := Replay(path, func(args []string) error {
		replayed = append(replayed, args)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"SET", "foo", "bar"}, replayed[0])
	require.Equal(t, []string{"SET", "baz", "qux"}, replayed[1])
}

func TestReplayMissingFileIsNotError(t *testing.T) {
	n, err := Replay("/nonexistent/path/aof", func(args []string) error { return nil })
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestAOFRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appendonly.aof")

	a, err := Open(path, FsyncAlways)
	require.NoError(t, err)
	require.NoError(t, a.Append([]string{"SET", "old", "value"}))

	err = a.Rewrite(func(emit func(args []string)) error {
		emit([]string{"SET", "new", "value"})
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	var replayed [][]string
	_, err = Replay(path, func(args []string) error {
		replayed = append(replayed, args)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"SET", "new", "value"}}, replayed)
}

func TestParseFsyncPolicy(t *testing.T) {
	require.Equal(t, FsyncAlways, ParseFsyncPolicy("always"))
	require.Equal(t, FsyncNever, ParseFsyncPolicy("no"))
	require.Equal(t, FsyncEverySec, ParseFsyncPolicy("everysec"))
	require.Equal(t, FsyncEverySec, ParseFsyncPolicy("garbage"))
}
