package snapshot

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTarGz assembles a gzipped tar archive with the usual single leading
// path component.
func buildTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     "repo-abc123/" + name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestFromTarGz(t *testing.T) {
	archive := buildTarGz(t, map[string]string{
		"src/main.py": "print('hi')\n",
		"README.md":   "# readme\n",
	})

	snap, err := fromTarGz(bytes.NewReader(archive), "main", "abc123", 0)
	require.NoError(t, err)

	assert.Equal(t, "main", snap.Ref)
	assert.Equal(t, "abc123", snap.SHA)
	// Leading path component stripped, entries sorted.
	assert.Equal(t, []string{"README.md", "src/main.py"}, snap.Paths())

	f, ok := snap.Get("src/main.py")
	require.True(t, ok)
	assert.Equal(t, "print('hi')\n", string(f.Data))

	_, ok = snap.Get("missing.txt")
	assert.False(t, ok)
}

func TestFromTarGzOversized(t *testing.T) {
	archive := buildTarGz(t, map[string]string{
		"small.txt": "ok",
		"large.bin": string(bytes.Repeat([]byte{'x'}, 128)),
	})

	snap, err := fromTarGz(bytes.NewReader(archive), "main", "abc", 64)
	require.NoError(t, err)

	assert.Equal(t, []string{"small.txt"}, snap.Paths())
	assert.Equal(t, []string{"large.bin"}, snap.Oversized)
}

func TestFromTarGzBadArchive(t *testing.T) {
	_, err := fromTarGz(bytes.NewReader([]byte("not a gzip stream")), "main", "abc", 0)
	assert.Error(t, err)
}

func TestStripLeadingDir(t *testing.T) {
	assert.Equal(t, "src/app.py", stripLeadingDir("repo-123/src/app.py"))
	assert.Equal(t, "flat.txt", stripLeadingDir("flat.txt"))
}

func TestIsCommitDigest(t *testing.T) {
	assert.True(t, isCommitDigest("0123456789abcdef0123456789abcdef01234567"))
	assert.False(t, isCommitDigest("main"))
	assert.False(t, isCommitDigest("0123456789ABCDEF0123456789ABCDEF01234567"))
	assert.False(t, isCommitDigest("0123456"))
}
