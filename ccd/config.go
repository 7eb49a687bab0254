// Package ccd builds the chemical component artifacts the dataset
// loading relies on: the residue dictionary, a binary copy of the
// wwPDB component dictionary and the component frequency table. The
// sources are large and change rarely, so everything is cached by
// the content hash of the downloaded files.
package ccd

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config says where the sources live and what gets kept. A YAML file
// overrides any subset of the defaults.
type Config struct {
	// ComponentsURL serves the full gzipped chemical component
	// dictionary.
	ComponentsURL string `yaml:"components_url"`

	// CountsURL serves the tab delimited component frequency file.
	CountsURL string `yaml:"counts_url"`

	// CacheDir holds downloads and built artifacts, keyed by
	// content hash.
	CacheDir string `yaml:"cache_dir"`

	// OutDir is where the finished artifacts are placed.
	OutDir string `yaml:"out_dir"`

	// MinCount drops components seen fewer times than this in the
	// PDB. The standard amino acids are always kept.
	MinCount int64 `yaml:"min_count"`
}

// DefaultConfig gives the wwPDB and ligand expo sources and a cache
// under the user's cache directory.
func DefaultConfig() Config {
	cacheDir := "ccd-cache"
	if base, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(base, "bio-datasets", "ccd")
	}
	return Config{
		ComponentsURL: "https://files.wwpdb.org/pub/pdb/data/monomers/components.cif.gz",
		CountsURL:     "http://ligand-expo.rcsb.org/dictionaries/cc-counts.tdd",
		CacheDir:      cacheDir,
		OutDir:        ".",
		MinCount:      100,
	}
}

// ReadConfig reads a YAML file over the defaults. A missing path
// just gives the defaults.
func ReadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if cfg.MinCount < 0 {
		return cfg, fmt.Errorf("config %s: min_count is negative", path)
	}
	return cfg, nil
}
