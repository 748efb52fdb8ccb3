package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, j.Close()) })
	return j
}

func TestJournal_AppendAndList(t *testing.T) {
	j := openTestJournal(t)

	first, err := j.Append("peps", KindAuth, "")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.False(t, first.At.IsZero())

	_, err = j.Append("theia", KindSearch, "SENTINEL2")
	require.NoError(t, err)
	_, err = j.Append("peps", KindSearch, "S1")
	require.NoError(t, err)

	all, err := j.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, first.ID, all[0].ID)
	require.Equal(t, "SENTINEL2", all[1].Subject)

	peps, err := j.List("peps", 0)
	require.NoError(t, err)
	require.Len(t, peps, 2)
	for _, entry := range peps {
		require.Equal(t, "peps", entry.Server)
	}
}

func TestJournal_ListLimitKeepsMostRecent(t *testing.T) {
	j := openTestJournal(t)

	for _, subject := range []string{"a", "b", "c", "d"} {
		_, err := j.Append("peps", KindDownload, subject)
		require.NoError(t, err)
	}

	got, err := j.List("", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "c", got[0].Subject)
	require.Equal(t, "d", got[1].Subject)
}

func TestJournal_RejectsUnknownKind(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.Append("peps", Kind("bogus"), "")
	require.ErrorIs(t, err, ErrInvalidKind)
}

func TestJournal_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	j, err := Open(path)
	require.NoError(t, err)
	_, err = j.Append("kalideos", KindAuth, "")
	require.NoError(t, err)
	require.NoError(t, j.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, reopened.Close()) }()

	entries, err := reopened.List("", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "kalideos", entries[0].Server)
}

func TestJournal_ClosedStoreRejectsCalls(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	_, err = j.Append("peps", KindAuth, "")
	require.ErrorIs(t, err, ErrClosed)
	_, err = j.List("", 0)
	require.ErrorIs(t, err, ErrClosed)
}
