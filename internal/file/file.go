package file

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dropcode/dropcode/internal/session"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/pgzip"
)

const SEND_TEMP_FILE_NAME_PREFIX = "dropcode-send-temp"
const RECEIVE_TEMP_FILE_NAME_PREFIX = "dropcode-receive-temp"

const (
	archiveExt      = ".tar.gz"
	archiveMimeType = "application/gzip"
	defaultMimeType = "application/octet-stream"
)

var ErrFileExists = errors.New("file exists")
var ErrUnsupportedFile = errors.New("unsupported file type")

// -------------------------------------------------------- Open -------------------------------------------------------

// Open reads the file at path into a transfer request. Directories are packed
// into a gzip-compressed tar archive named after the directory. Files larger
// than session.MaxUploadSize are rejected before being read.
func Open(path string) (*session.TransferRequest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	switch {
	case info.IsDir():
		return openDirectory(path)
	case !info.Mode().IsRegular():
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	case info.Size() > session.MaxUploadSize:
		return nil, fmt.Errorf("%w: %s is %d bytes", session.ErrFileTooLarge, info.Name(), info.Size())
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &session.TransferRequest{
		Content:  content,
		Filename: info.Name(),
		Size:     int64(len(content)),
		MimeType: DetectMimeType(info.Name(), content),
	}, nil
}

func openDirectory(path string) (*session.TransferRequest, error) {
	archive, size, err := PackDirectory(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		archive.Close()
		os.Remove(archive.Name())
	}()
	if size > session.MaxUploadSize {
		return nil, fmt.Errorf("%w: packed archive is %d bytes", session.ErrFileTooLarge, size)
	}
	content, err := io.ReadAll(archive)
	if err != nil {
		return nil, err
	}
	return &session.TransferRequest{
		Content:  content,
		Filename: filepath.Base(filepath.Clean(path)) + archiveExt,
		Size:     int64(len(content)),
		MimeType: archiveMimeType,
	}, nil
}

// DetectMimeType resolves the media type of a file, first from its extension
// and then by sniffing its content. Parameters such as charset are dropped.
func DetectMimeType(name string, content []byte) string {
	t := mime.TypeByExtension(filepath.Ext(name))
	if t == "" {
		t = mimetype.Detect(content).String()
	}
	t, _, _ = strings.Cut(t, ";")
	t = strings.TrimSpace(t)
	if t == "" {
		return defaultMimeType
	}
	return t
}

// CleanDroppedPath turns a path pasted by a terminal drag and drop into a
// regular path. Terminals variously quote the path, escape its spaces or
// paste it as a file:// url.
func CleanDroppedPath(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	if strings.HasPrefix(s, "file://") {
		if u, err := url.Parse(s); err == nil {
			return u.Path
		}
	}
	return strings.NewReplacer(`\ `, " ", `\(`, "(", `\)`, ")", `\'`, "'", `\&`, "&").Replace(s)
}

// ----------------------------------------------------- Pack Files ----------------------------------------------------

// PackDirectory tars and gzip-compresses a directory into a temporary file,
// returning it along with the resulting size. The caller removes the file.
func PackDirectory(dir string) (*os.File, int64, error) {
	// chained writers -> writing to tw writes to gw -> writes to temporary file
	tempFile, err := os.CreateTemp(os.TempDir(), SEND_TEMP_FILE_NAME_PREFIX)
	if err != nil {
		return nil, 0, err
	}
	cleanup := func(err error) (*os.File, int64, error) {
		tempFile.Close()
		os.Remove(tempFile.Name())
		return nil, 0, err
	}

	tempFileWriter := bufio.NewWriter(tempFile)
	gw := pgzip.NewWriter(tempFileWriter)
	tw := tar.NewWriter(gw)

	if err := addToTarArchive(tw, dir); err != nil {
		return cleanup(err)
	}
	if err := tw.Close(); err != nil {
		return cleanup(err)
	}
	if err := gw.Close(); err != nil {
		return cleanup(err)
	}
	if err := tempFileWriter.Flush(); err != nil {
		return cleanup(err)
	}
	fileInfo, err := tempFile.Stat()
	if err != nil {
		return cleanup(err)
	}
	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		return cleanup(err)
	}
	return tempFile, fileInfo.Size(), nil
}

// ---------------------------------------------------- Save Files -----------------------------------------------------

// Exists reports whether name would collide with an existing file in dir.
func Exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, filepath.Base(name)))
	return !os.IsNotExist(err)
}

// Save writes r to name inside dir and returns the written path and size.
// Only the base of name is used. An existing file is replaced when overwrite
// is set, otherwise ErrFileExists is returned. The content is written to a
// temporary file first so a failed transfer never leaves a partial file.
func Save(dir, name string, r io.Reader, overwrite bool) (string, int64, error) {
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." {
		return "", 0, fmt.Errorf("invalid file name %q", name)
	}
	path := filepath.Join(dir, name)
	if !overwrite && fileExists(path) {
		return path, 0, ErrFileExists
	}

	tempFile, err := os.CreateTemp(dir, RECEIVE_TEMP_FILE_NAME_PREFIX)
	if err != nil {
		return "", 0, err
	}
	written, err := io.Copy(tempFile, r)
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempFile.Name())
		return "", 0, err
	}
	if err := os.Chmod(tempFile.Name(), 0o644); err != nil {
		os.Remove(tempFile.Name())
		return "", 0, err
	}
	if err := os.Rename(tempFile.Name(), path); err != nil {
		os.Remove(tempFile.Name())
		return "", 0, err
	}
	return path, written, nil
}

// NameFromURL picks a file name for a download when the backend did not
// provide one, falling back to "download".
func NameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "download"
	}
	return name
}

// ----------------------------------------------------- Utilities -----------------------------------------------------

// optimistically remove files created by dropcode with the specified prefix
func RemoveTemporaryFiles(dir, prefix string) {
	tempFiles, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, tempFile := range tempFiles {
		if strings.HasPrefix(tempFile.Name(), prefix) {
			os.Remove(filepath.Join(dir, tempFile.Name()))
		}
	}
}

// ------------------------------------------------------- Helper ------------------------------------------------------

// addToTarArchive adds a directory tree to a tar archive, rooted at the
// directory's own name. Symlinks are replaced with the files they point to.
func addToTarArchive(tw *tar.Writer, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	absoluteBase := filepath.Dir(absRoot)

	return filepath.Walk(absRoot, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if (fi.Mode() & os.ModeSymlink) == os.ModeSymlink {
			link, err := filepath.EvalSymlinks(path)
			if err != nil {
				return err
			}
			if fi, err = os.Stat(link); err != nil {
				return err
			}
		}

		header, err := tar.FileInfoHeader(fi, path)
		if err != nil {
			return err
		}
		// remove the absolute root from the filename, leaving only the desired filename
		header.Name = filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(path, absoluteBase), string(os.PathSeparator)))
		if fi.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		if fi.IsDir() {
			return nil
		}
		data, err := os.Open(path)
		if err != nil {
			return err
		}
		defer data.Close()
		_, err = io.Copy(tw, data)
		return err
	})
}

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}
