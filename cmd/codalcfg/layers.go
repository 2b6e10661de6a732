package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/microbit-carlos/codalcfg/internal/infrastructure/config"
	"github.com/microbit-carlos/codalcfg/internal/target"
	"github.com/microbit-carlos/codalcfg/internal/target/layerfile"
	"github.com/microbit-carlos/codalcfg/internal/target/profile"
)

// resolution is the outcome of one resolve run, successful or not.
type resolution struct {
	target   config.TargetConfig
	resolved *target.Resolved
	err      error
	elapsed  time.Duration
}

// loadLayer returns the built-in profile called name, or reads name as a
// layer file when it has a path separator or a layer file extension.
func loadLayer(name string) (*target.Set, error) {
	if isLayerFile(name) {
		set, err := layerfile.Load(name)
		if err != nil {
			return nil, fmt.Errorf("loading layer %s: %w", name, err)
		}
		return set, nil
	}
	return profile.Lookup(name)
}

func isLayerFile(name string) bool {
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return true
	}
	_, err := layerfile.FormatOf(name)
	return err == nil
}

// resolveLayers loads both layers named by tc and resolves them.
func resolveLayers(tc config.TargetConfig) (res resolution) {
	res.target = tc
	start := time.Now()
	defer func() { res.elapsed = time.Since(start) }()

	base, err := loadLayer(tc.Base)
	if err != nil {
		res.err = fmt.Errorf("base layer: %w", err)
		return res
	}
	override, err := loadLayer(tc.Override)
	if err != nil {
		res.err = fmt.Errorf("override layer: %w", err)
		return res
	}
	res.resolved, res.err = target.Resolve(base, override)
	return res
}

// writeHeaderFile writes a header to path through a temporary file in the
// same directory. Readers never see a partial header.
func writeHeaderFile(path string, render func(f *os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating header directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".codalcfg-*.h")
	if err != nil {
		return fmt.Errorf("creating header: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Gone after a successful rename

	if err := render(tmp); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("writing header: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // Generated source is world-readable
		return fmt.Errorf("writing header: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return nil
}
