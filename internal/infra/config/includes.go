package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxIncludeDepth = 8

// processIncludes overlays every file named by cfg.Includes onto cfg, in order.
// dir is the directory of the file declaring the includes; seen holds the
// absolute paths already loaded so that cycles are reported instead of looping.
func processIncludes(cfg *Config, dir string, seen map[string]bool, depth int) error {
	if depth > maxIncludeDepth {
		return fmt.Errorf("config includes: nested deeper than %d levels", maxIncludeDepth)
	}
	if seen == nil {
		seen = make(map[string]bool)
	}

	includes := cfg.Includes
	cfg.Includes = nil

	for _, pattern := range includes {
		paths, err := expandInclude(pattern, dir)
		if err != nil {
			return err
		}
		for _, p := range paths {
			abs, err := filepath.Abs(p)
			if err != nil {
				return fmt.Errorf("config includes: %q: %w", p, err)
			}
			if seen[abs] {
				return fmt.Errorf("config includes: cycle through %q", abs)
			}
			seen[abs] = true

			if err := overlayFile(cfg, abs, seen, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// expandInclude resolves one include entry against dir. Globs are expanded and
// a glob matching nothing is skipped; a literal path must exist. Entries may not
// climb out of dir.
func expandInclude(pattern, dir string) ([]string, error) {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(dir, pattern)
	}
	pattern = filepath.Clean(pattern)

	if rel, err := filepath.Rel(dir, pattern); err == nil && strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("config includes: %q is outside %q", pattern, dir)
	}

	if !strings.ContainsAny(pattern, "*?[") {
		return []string{pattern}, nil
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("config includes: bad glob %q: %w", pattern, err)
	}
	return matches, nil
}

// overlayFile unmarshals one included file on top of cfg, then follows that
// file's own includes.
func overlayFile(cfg *Config, path string, seen map[string]bool, depth int) error {
	if err := validatePermissions(path); err != nil {
		return fmt.Errorf("config includes: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config includes: read %q: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}

	cfg.Includes = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config includes: parse %q: %w", path, err)
	}

	if len(cfg.Includes) > 0 {
		return processIncludes(cfg, filepath.Dir(path), seen, depth)
	}
	return nil
}
