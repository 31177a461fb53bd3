package file

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dropcode/dropcode/internal/session"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	t.Run("regular file", func(t *testing.T) {
		path := filepath.Join(dir, "data.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"a":1}`), 0o644))

		req, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, "data.json", req.Filename)
		assert.Equal(t, int64(7), req.Size)
		assert.Equal(t, []byte(`{"a":1}`), req.Content)
		assert.Equal(t, "application/json", req.MimeType)
	})

	t.Run("sniffed type", func(t *testing.T) {
		path := filepath.Join(dir, "picture.unknownext")
		require.NoError(t, os.WriteFile(path, pngMagic, 0o644))

		req, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, "image/png", req.MimeType)
	})

	t.Run("too large", func(t *testing.T) {
		path := filepath.Join(dir, "big.bin")
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, f.Truncate(session.MaxUploadSize+1))
		require.NoError(t, f.Close())

		_, err = Open(path)
		assert.ErrorIs(t, err, session.ErrFileTooLarge)
	})

	t.Run("at limit", func(t *testing.T) {
		path := filepath.Join(dir, "limit.bin")
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, f.Truncate(session.MaxUploadSize))
		require.NoError(t, f.Close())

		req, err := Open(path)
		require.NoError(t, err)
		assert.Equal(t, session.MaxUploadSize, req.Size)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Open(filepath.Join(dir, "nope.txt"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("parent is a file", func(t *testing.T) {
		parent := filepath.Join(dir, "plain.txt")
		require.NoError(t, os.WriteFile(parent, []byte("x"), 0o644))

		_, err := Open(filepath.Join(parent, "child"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, os.ErrNotExist)
		assert.Contains(t, err.Error(), "opening ")
	})

	t.Run("directory", func(t *testing.T) {
		root := filepath.Join(dir, "notes")
		require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("beta"), 0o644))

		req, err := Open(root)
		require.NoError(t, err)
		assert.Equal(t, "notes.tar.gz", req.Filename)
		assert.Equal(t, "application/gzip", req.MimeType)
		assert.Equal(t, int64(len(req.Content)), req.Size)

		contents := untar(t, req.Content)
		assert.Equal(t, "alpha", contents["notes/a.txt"])
		assert.Equal(t, "beta", contents["notes/sub/b.txt"])
	})
}

func untar(t *testing.T, archive []byte) map[string]string {
	t.Helper()
	gr, err := pgzip.NewReader(bytes.NewReader(archive))
	require.NoError(t, err)
	defer gr.Close()

	contents := map[string]string{}
	tr := tar.NewReader(gr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if header.Typeflag != tar.TypeReg {
			continue
		}
		b, err := io.ReadAll(tr)
		require.NoError(t, err)
		contents[header.Name] = string(b)
	}
	return contents
}

func TestDetectMimeType(t *testing.T) {
	assert.Equal(t, "image/png", DetectMimeType("x.png", nil))
	assert.Equal(t, "application/pdf", DetectMimeType("report.pdf", nil))
	assert.Equal(t, "text/plain", DetectMimeType("README", []byte("just some words\n")))
	assert.Equal(t, "image/png", DetectMimeType("noext", pngMagic))
}

func TestCleanDroppedPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/tmp/a.txt", "/tmp/a.txt"},
		{"  /tmp/a.txt \n", "/tmp/a.txt"},
		{"'/tmp/my file.txt'", "/tmp/my file.txt"},
		{`"/tmp/my file.txt"`, "/tmp/my file.txt"},
		{`/tmp/my\ file\ \(1\).txt`, "/tmp/my file (1).txt"},
		{"file:///tmp/my%20file.txt", "/tmp/my file.txt"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanDroppedPath(tc.in))
		})
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()

	path, n, err := Save(dir, "report.pdf", strings.NewReader("first"), false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.pdf"), path)
	assert.Equal(t, int64(5), n)
	assert.True(t, Exists(dir, "report.pdf"))

	_, _, err = Save(dir, "report.pdf", strings.NewReader("second"), false)
	assert.ErrorIs(t, err, ErrFileExists)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(b))

	_, _, err = Save(dir, "report.pdf", strings.NewReader("second"), true)
	require.NoError(t, err)
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	path, _, err := Save(dir, "../../escape.txt", strings.NewReader("x"), false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.txt"), path)

	_, _, err = Save(dir, "", strings.NewReader("x"), false)
	assert.Error(t, err)
}

func TestRemoveTemporaryFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, RECEIVE_TEMP_FILE_NAME_PREFIX+"123"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), nil, 0o644))

	RemoveTemporaryFiles(dir, RECEIVE_TEMP_FILE_NAME_PREFIX)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep.txt", entries[0].Name())
}

func TestNameFromURL(t *testing.T) {
	assert.Equal(t, "report.pdf", NameFromURL("https://bucket.s3.amazonaws.com/uploads/report.pdf?X-Amz-Signature=abc"))
	assert.Equal(t, "my file.txt", NameFromURL("https://cdn.example.com/my%20file.txt"))
	assert.Equal(t, "download", NameFromURL("https://cdn.example.com/"))
	assert.Equal(t, "download", NameFromURL("://bad"))
}
