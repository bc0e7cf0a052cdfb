package paths_test

import (
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-timetrack-client/internal/paths"
	"github.com/stretchr/testify/require"
)

func TestPortableHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TIMETRACK_HOME", home)

	require.Equal(t, filepath.Join(home, "config"), paths.ConfigDir())
	require.Equal(t, filepath.Join(home, "state"), paths.StateDir())
	require.Equal(t, filepath.Join(home, "state", "session.yml"), paths.SessionFile())
	require.NoError(t, paths.EnsureDirs())
	require.DirExists(t, paths.StateDir())
}

func TestXDGStateHome(t *testing.T) {
	t.Setenv("TIMETRACK_HOME", "")
	xdg := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdg)

	require.Equal(t, filepath.Join(xdg, "timetrack"), paths.StateDir())
	require.Equal(t, filepath.Join(xdg, "timetrack", "session.key"), paths.SessionKeyFile())
}
