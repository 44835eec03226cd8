package apk

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveAndGet(t *testing.T) {
	s, err := NewStore(t.TempDir(), 1)
	require.NoError(t, err)

	content := "fake apk bytes"
	a, err := s.Save("BeatGame.apk", strings.NewReader(content))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(a.Name, ".apk"))
	require.Equal(t, "BeatGame.apk", a.Original)
	require.Equal(t, int64(len(content)), a.Size)

	sum := sha256.Sum256([]byte(content))
	require.Equal(t, hex.EncodeToString(sum[:]), a.SHA256)

	got, err := s.Get(a.Name)
	require.NoError(t, err)
	require.Equal(t, a.Name, got.Name)

	path, err := s.Path(a.Name)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, content, string(data))
}

func TestSaveRejectsNonAPK(t *testing.T) {
	s, err := NewStore(t.TempDir(), 1)
	require.NoError(t, err)

	_, err = s.Save("malware.exe", strings.NewReader("x"))
	require.Error(t, err)
}

func TestSaveEnforcesSizeLimit(t *testing.T) {
	s, err := NewStore(t.TempDir(), 1) // 1 MB
	require.NoError(t, err)

	big := strings.Repeat("a", 1<<20+1)
	_, err = s.Save("big.apk", strings.NewReader(big))
	require.Error(t, err)
	require.Contains(t, err.Error(), "limit")
}

func TestUploadsNeverClobber(t *testing.T) {
	s, err := NewStore(t.TempDir(), 1)
	require.NoError(t, err)

	a, err := s.Save("game.apk", strings.NewReader("v1"))
	require.NoError(t, err)
	b, err := s.Save("game.apk", strings.NewReader("v2"))
	require.NoError(t, err)

	require.NotEqual(t, a.Name, b.Name)
	require.Len(t, s.List(), 2)
}

func TestPathRejectsTraversal(t *testing.T) {
	s, err := NewStore(t.TempDir(), 1)
	require.NoError(t, err)

	for _, name := range []string{"../etc/passwd", "a/../../b.apk", "missing.apk"} {
		_, err := s.Path(name)
		require.ErrorIs(t, err, ErrNotFound)
	}
}

func TestGetUnknown(t *testing.T) {
	s, err := NewStore(t.TempDir(), 1)
	require.NoError(t, err)

	_, err = s.Get("nope.apk")
	require.ErrorIs(t, err, ErrNotFound)
}
