package gen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config drives a generation run. It is usually loaded from a
// templargen.yaml file next to the scanned package.
type Config struct {
	// Packages are the Go package patterns to scan.
	Packages []string `yaml:"packages"`
	// Out is the output file; "-" or empty means stdout.
	Out string `yaml:"out"`
	// Include restricts generation to the named types. Empty means every
	// exported struct type.
	Include []string `yaml:"include"`
	// Exclude removes named types after Include filtering.
	Exclude []string `yaml:"exclude"`
	// StripPackagePrefix is removed from package paths in the emitted
	// template, keeping declaration paths short.
	StripPackagePrefix string `yaml:"strip_package_prefix"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", filepath.Base(path), err)
	}
	if len(cfg.Packages) == 0 {
		return nil, fmt.Errorf("config %s names no packages", filepath.Base(path))
	}
	return &cfg, nil
}

// Run scans the configured packages and returns the emitted template
// document.
func (cfg *Config) Run(dir string) (string, error) {
	var all []ClassModel
	for _, pattern := range cfg.Packages {
		classes, err := Scan(pattern, dir)
		if err != nil {
			return "", err
		}
		all = append(all, classes...)
	}
	all = cfg.filter(all)
	if cfg.StripPackagePrefix != "" {
		for i := range all {
			all[i].Package = strings.TrimPrefix(all[i].Package, cfg.StripPackagePrefix)
			all[i].Package = strings.TrimPrefix(all[i].Package, "/")
		}
	}
	return Emit(all), nil
}

func (cfg *Config) filter(classes []ClassModel) []ClassModel {
	included := func(name string) bool {
		if len(cfg.Include) > 0 && !contains(cfg.Include, name) {
			return false
		}
		return !contains(cfg.Exclude, name)
	}
	out := classes[:0]
	for _, c := range classes {
		if included(c.Name) {
			out = append(out, c)
		}
	}
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
