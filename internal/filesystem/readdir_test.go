package filesystem

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func hostOrder(t *testing.T, dir string) []string {
	t.Helper()

	f, err := os.Open(dir)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	names, err := f.Readdirnames(-1)
	require.NoError(t, err)
	return names
}

func withoutDots(names []string) []string {
	var out []string
	for _, name := range names {
		if name != "." && name != ".." {
			out = append(out, name)
		}
	}
	return out
}

func populate(t *testing.T, fx *fixture, names ...string) {
	t.Helper()
	require.NoError(t, os.Mkdir(fx.backing("sub"), 0755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(fx.backing("sub/"+name), nil, 0644))
	}
}

func TestReaddirEnumeratesOnce(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	populate(t, fx, "alpha", "beta", "gamma", "delta")
	require.NoError(t, os.Mkdir(fx.backing("sub/nested"), 0755))

	dir, err := fx.d.Opendir("/sub")
	require.NoError(t, err)
	assert.Equal(t, "/sub", dir.Path())

	var seen []string
	modes := make(map[string]uint32)
	require.NoError(t, fx.d.Readdir(dir, func(e DirEntry) bool {
		seen = append(seen, e.Name)
		modes[e.Name] = e.Mode
		return true
	}))

	assert.Equal(t, hostOrder(t, fx.backing("sub")), withoutDots(seen))
	assert.Equal(t, uint32(unix.S_IFDIR), modes["nested"])
	assert.Equal(t, uint32(unix.S_IFREG), modes["alpha"])

	calls := 0
	require.NoError(t, fx.d.Readdir(dir, func(DirEntry) bool {
		calls++
		return true
	}))
	assert.Zero(t, calls, "exhausted stream yields no entries")

	require.NoError(t, fx.d.Fsyncdir(dir, true))
	require.NoError(t, fx.d.Releasedir(dir))
	assert.ErrorIs(t, fx.d.Releasedir(dir), unix.EBADF)
	assert.ErrorIs(t, fx.d.Readdir(dir, func(DirEntry) bool { return true }), unix.EBADF)
	assert.ErrorIs(t, fx.d.Fsyncdir(dir, false), unix.EBADF)
	assert.Zero(t, fx.d.Stats().OpenHandles)
}

func TestReaddirRejectedEntryIsKept(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)
	populate(t, fx, "one", "two", "three", "four", "five")

	dir, err := fx.d.Opendir("/sub")
	require.NoError(t, err)
	defer func() { _ = fx.d.Releasedir(dir) }()

	var seen []string
	budget := 2
	fill := func(e DirEntry) bool {
		if budget == 0 {
			return false
		}
		budget--
		seen = append(seen, e.Name)
		return true
	}

	rejections := 0
	for {
		budget = 2
		err := fx.d.Readdir(dir, fill)
		if err == nil {
			break
		}
		require.ErrorIs(t, err, unix.ENOMEM)
		rejections++
		require.Less(t, rejections, 10)
	}

	assert.Positive(t, rejections)
	assert.Equal(t, hostOrder(t, fx.backing("sub")), withoutDots(seen))
}

func TestOpendirErrors(t *testing.T) {
	t.Parallel()
	fx := newFixture(t)

	_, err := fx.d.Opendir("/missing")
	assert.ErrorIs(t, err, unix.ENOENT)

	require.NoError(t, os.WriteFile(fx.backing("file"), nil, 0644))
	_, err = fx.d.Opendir("/file")
	assert.ErrorIs(t, err, unix.ENOTDIR)

	assert.ErrorIs(t, fx.d.Readdir(nil, nil), unix.EBADF)
	assert.ErrorIs(t, fx.d.Releasedir(nil), unix.EBADF)
	assert.ErrorIs(t, fx.d.Fsyncdir(nil, false), unix.EBADF)
}
