package config

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"texlipse/internal/parser"
	"texlipse/internal/project"
)

type Config struct {
	MainFile      string   `json:"main_file"`
	Extensions    []string `json:"extensions"`
	BibExtension  string   `json:"bib_extension"`
	AuxExtension  string   `json:"aux_extension"`
	ParseDelayMS  int      `json:"parse_delay_ms"`
	CheckSections bool     `json:"check_sections"`
	Verbatim      []string `json:"verbatim_environments"`
	Cache         bool     `json:"cache"`
	GraphAddr     string   `json:"graph_addr"`
}

var defaultConfig = Config{
	MainFile:      "main.tex",
	Extensions:    []string{".tex", ".ltx", ".sty", ".cls"},
	BibExtension:  ".bib",
	AuxExtension:  ".aux",
	ParseDelayMS:  500,
	CheckSections: true,
	Verbatim:      []string{"verbatim", "verbatim*", "lstlisting", "Verbatim", "comment"},
	Cache:         true,
	GraphAddr:     "localhost:7777",
}

// Default returns a copy of the default configuration.
func Default() Config {
	cfg := defaultConfig
	cfg.Extensions = slices.Clone(cfg.Extensions)
	cfg.Verbatim = slices.Clone(cfg.Verbatim)
	return cfg
}

func Load(v any) (Config, error) {
	cfg := Default()
	if v == nil {
		return cfg, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, fmt.Errorf("failed to marshal source: %w", err)
	}

	// only fields present in src will overwrite.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal into Config: %w", err)
	}

	return cfg, nil
}

// LoadFromJSON reads JSON from r into a Config.
func LoadFromJSON(r io.Reader) (Config, error) {
	cfg := Default()

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, err
	}

	return cfg, nil
}

// ParseDelay is the debounce interval between an edit and its reparse.
func (c Config) ParseDelay() time.Duration {
	return time.Duration(c.ParseDelayMS) * time.Millisecond
}

func (c Config) ParserOptions(file string) parser.Options {
	return parser.Options{
		File:          file,
		CheckSections: c.CheckSections,
		Verbatim:      c.Verbatim,
	}
}

func (c Config) ProjectOptions() project.Options {
	return project.Options{
		Main:          c.MainFile,
		AuxExtension:  c.AuxExtension,
		CheckSections: c.CheckSections,
		Verbatim:      c.Verbatim,
	}
}

// Tracked reports whether name is a source, bibliography or auxiliary file
// by its extension.
func (c Config) Tracked(name string) bool {
	return c.IsSource(name) || c.IsBibliography(name) || c.IsAux(name)
}

func (c Config) IsSource(name string) bool {
	for _, ext := range c.Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func (c Config) IsBibliography(name string) bool {
	return c.BibExtension != "" && strings.HasSuffix(name, c.BibExtension)
}

func (c Config) IsAux(name string) bool {
	return c.AuxExtension != "" && strings.HasSuffix(name, c.AuxExtension)
}
