// SPDX-License-Identifier: MPL-2.0

package benchconfig

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CopyBundle copies the applied bundle into the output directory. The image
// builder writes bundle output next to the bundle file, so it must not stay
// in a shared cache.
func (p *BuildPlan) CopyBundle() error {
	if p.BundlePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.BundlePath), 0o755); err != nil {
		return fmt.Errorf("failed to create bundle directory: %w", err)
	}
	return copyFile(p.BundleSource, p.BundlePath, 0o644)
}

// BundleOutputDir is where the image builder leaves the applied bundle's output.
func (p *BuildPlan) BundleOutputDir() string {
	name := strings.TrimSuffix(filepath.Base(p.BundlePath), bundleExt)
	return filepath.Join(filepath.Dir(p.BundlePath), name+".output", "default")
}

// CollectBundleOutput moves the bundle output into the output directory.
func (p *BuildPlan) CollectBundleOutput() error {
	if p.BundlePath == "" {
		return nil
	}
	src := p.BundleOutputDir()
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(p.OutputDir, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, dst, info.Mode().Perm())
	})
	if err != nil {
		return fmt.Errorf("failed to copy bundle output %s: %w", src, err)
	}
	return os.RemoveAll(src)
}

func copyFile(src, dst string, perm fs.FileMode) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
