// Package config loads HistDiff run configurations from JSON or YAML files.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/carbocation/histdiff/hdscore"
	"github.com/carbocation/histdiff/platemap"
	"github.com/carbocation/pfx"
	"gopkg.in/yaml.v3"
)

// Config describes one HistDiff run.
type Config struct {
	ConfigPath string `json:"-" yaml:"-"`

	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`

	// Controls is the plate map that labels the reference wells.
	Controls        string   `json:"controls" yaml:"controls"`
	ReferenceColumn string   `json:"reference_column" yaml:"reference_column"`
	WellColumn      string   `json:"well_column" yaml:"well_column"`
	IDColumns       []string `json:"id_columns" yaml:"id_columns"`

	NBins  int     `json:"nbins" yaml:"nbins"`
	Factor float64 `json:"factor" yaml:"factor"`

	Blocks     [][]string `json:"blocks" yaml:"blocks"`
	BlocksFile string     `json:"blocks_file" yaml:"blocks_file"`
	Conflict   string     `json:"conflict" yaml:"conflict"`

	ProblematicOut string `json:"problematic_out" yaml:"problematic_out"`
	SQLite         string `json:"sqlite" yaml:"sqlite"`
	PlateName      string `json:"plate_name" yaml:"plate_name"`

	Workers     int    `json:"workers" yaml:"workers"`
	PlotFeature string `json:"plot_feature" yaml:"plot_feature"`
	Verbose     bool   `json:"verbose" yaml:"verbose"`
}

// DefaultConfig returns the configuration of a run with nothing specified.
func DefaultConfig() *Config {
	return &Config{
		ReferenceColumn: platemap.DefaultLabelColumn,
		WellColumn:      platemap.DefaultWellColumn,
		IDColumns:       []string{"id"},
		NBins:           hdscore.DefaultNBins,
		Factor:          1.0,
		Conflict:        hdscore.Overwrite.String(),
	}
}

// Load reads a configuration file. Files ending in .json are JSON; anything
// else is YAML. Unset values take their defaults and a leading ~ in paths is
// expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
		if e, ok := err.(*json.SyntaxError); ok {
			log.Printf("syntax error at byte offset %d", e.Offset)
		}
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	cfg.ConfigPath = path
	applyDefaults(&cfg)

	// Interpret ~ if present
	cfg.ConfigPath = expandHomeDir(cfg.ConfigPath)
	cfg.Input = expandHomeDir(cfg.Input)
	cfg.Output = expandHomeDir(cfg.Output)
	cfg.Controls = expandHomeDir(cfg.Controls)
	cfg.BlocksFile = expandHomeDir(cfg.BlocksFile)
	cfg.ProblematicOut = expandHomeDir(cfg.ProblematicOut)
	cfg.SQLite = expandHomeDir(cfg.SQLite)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.ReferenceColumn == "" {
		cfg.ReferenceColumn = defaults.ReferenceColumn
	}
	if cfg.WellColumn == "" {
		cfg.WellColumn = defaults.WellColumn
	}
	if len(cfg.IDColumns) == 0 {
		cfg.IDColumns = defaults.IDColumns
	}
	if cfg.NBins == 0 {
		cfg.NBins = defaults.NBins
	}
	if cfg.Factor == 0 {
		cfg.Factor = defaults.Factor
	}
	if cfg.Conflict == "" {
		cfg.Conflict = defaults.Conflict
	}
}

// Validate reports the first setting that would stop a run.
func (c *Config) Validate() error {
	switch {
	case c.Input == "":
		return fmt.Errorf("no input file was given")
	case c.Output == "":
		return fmt.Errorf("no output file was given")
	case c.Controls == "":
		return fmt.Errorf("no plate map with control wells was given")
	case len(c.IDColumns) == 0:
		return fmt.Errorf("no identifier column was given")
	case c.NBins < 1:
		return fmt.Errorf("nbins must be positive, got %d", c.NBins)
	case c.Workers < 0:
		return fmt.Errorf("workers cannot be negative, got %d", c.Workers)
	}

	if _, err := hdscore.ParseConflictPolicy(c.Conflict); err != nil {
		return err
	}

	return nil
}

// Via https://stackoverflow.com/a/17617721/199475
func expandHomeDir(path string) string {
	usr, err := user.Current()
	if err != nil {
		return path
	}

	dir := usr.HomeDir

	if path == "~" {
		path = dir
	} else if strings.HasPrefix(path, "~/") {
		path = filepath.Join(dir, path[2:])
	}

	return path
}
