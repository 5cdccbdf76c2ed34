// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/nibench/nibench/internal/runtime"
)

func (p *Pipeline) agent(ctx context.Context) error {
	cmd := p.cfg.Plan.AgentCommand(runtime.JavaExecutable(p.cfg.Home), p.cfg.CPUCount)
	if err := p.exec.Execute(ctx, cmd, runCommand); err != nil {
		return err
	}
	if p.cfg.Stages.Failed() {
		return nil
	}
	return WriteConfigZip(p.cfg.Plan.ConfigDir, p.cfg.Plan.ConfigZipPath())
}

// WriteConfigZip archives every .json file under dir into path with DEFLATE.
// Entry names are relative to the directory holding the archive.
func WriteConfigZip(dir, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	base := filepath.Dir(path)
	zw := zip.NewWriter(f)
	walkErr := filepath.WalkDir(dir, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		rel, err := filepath.Rel(base, file)
		if err != nil {
			return err
		}
		return addZipEntry(zw, file, filepath.ToSlash(rel))
	})
	if walkErr != nil {
		_ = zw.Close()
		return fmt.Errorf("failed to archive %s: %w", dir, walkErr)
	}
	return zw.Close()
}

func addZipEntry(zw *zip.Writer, file, name string) error {
	info, err := os.Stat(file)
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	in, err := os.Open(file)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	_, err = io.Copy(w, in)
	return err
}
