package installer

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ExtractExecutable extracts the single archive entry whose base name
// equals exeName into destDir, ignoring every other entry. Entry paths
// from the archive are never written to disk, so a hostile archive
// cannot place files outside destDir.
func (i *Installer) ExtractExecutable(archivePath, destDir, exeName string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("installer: prepare %s: %w", destDir, err)
	}

	var err error
	if strings.HasSuffix(archivePath, ".zip") {
		err = extractFromZip(archivePath, destDir, exeName)
	} else {
		err = extractFromTarGz(archivePath, destDir, exeName)
	}
	if err != nil {
		return err
	}

	target := filepath.Join(destDir, exeName)
	if runtime.GOOS != "windows" {
		if err := os.Chmod(target, 0o755); err != nil {
			return fmt.Errorf("installer: chmod %s: %w", target, err)
		}
	}
	return nil
}

func extractFromTarGz(archivePath, destDir, exeName string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("installer: open archive: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("installer: gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("installer: read archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if path.Base(header.Name) != exeName {
			continue
		}
		return writeEntry(filepath.Join(destDir, exeName), tr)
	}

	return fmt.Errorf("installer: %s not found in %s", exeName, filepath.Base(archivePath))
}

func extractFromZip(archivePath, destDir, exeName string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("installer: open archive: %w", err)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if path.Base(entry.Name) != exeName {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("installer: open entry: %w", err)
		}
		defer rc.Close()
		return writeEntry(filepath.Join(destDir, exeName), rc)
	}

	return fmt.Errorf("installer: %s not found in %s", exeName, filepath.Base(archivePath))
}

func writeEntry(target string, src io.Reader) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("installer: create %s: %w", target, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("installer: copy %s: %w", target, err)
	}
	return out.Close()
}
