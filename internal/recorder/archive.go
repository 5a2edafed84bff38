package recorder

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"

	"callrecorder/pkg/recorderrors"
)

func init() {
	// Register klauspost/compress's flate implementation as the zip
	// writer's deflate compressor; it is faster than stdlib flate and
	// produces standard-conforming zip entries.
	zip.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
}

// BuildArchive zips every file directly under dir into zipPath. The zip
// path itself is skipped if it happens to already exist under dir.
func BuildArchive(dir, zipPath string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return recorderrors.New(recorderrors.KindArchiveFailed, "read call output dir", err)
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return recorderrors.New(recorderrors.KindArchiveFailed, "create archive file", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		srcPath := filepath.Join(dir, entry.Name())
		if srcPath == zipPath {
			continue
		}
		if err := addFileToZip(zw, srcPath, entry.Name()); err != nil {
			_ = zw.Close()
			return recorderrors.New(recorderrors.KindArchiveFailed, "add file to archive", err)
		}
	}
	if err := zw.Close(); err != nil {
		return recorderrors.New(recorderrors.KindArchiveFailed, "finalize archive", err)
	}
	return nil
}

func addFileToZip(zw *zip.Writer, srcPath, nameInZip string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.Create(nameInZip)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
