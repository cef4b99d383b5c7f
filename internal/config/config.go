// Package config loads engine policy from YAML or CUE files.
//
// Both formats are validated against the embedded CUE schema (schema.cue)
// before being converted into engine options, so a file either yields a
// complete, valid policy or an error that names the offending field.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/listq/internal/engine"
)

//go:embed schema.cue
var schemaCUE string

// Format selects the file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatFor infers the format from a file extension. JSON is read as YAML.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	}
	return "", fmt.Errorf("unsupported config extension %q (want .yaml, .yml, .json or .cue)", filepath.Ext(path))
}

// File is the on-disk engine policy.
type File struct {
	MaxPending       int      `yaml:"max_pending" json:"max_pending"`
	Overflow         string   `yaml:"overflow" json:"overflow,omitempty"`
	MergeKeys        []string `yaml:"merge_keys" json:"merge_keys,omitempty"`
	DiffMode         string   `yaml:"diff_mode" json:"diff_mode,omitempty"`
	ThreadCheck      string   `yaml:"thread_check" json:"thread_check,omitempty"`
	MetricsNamespace string   `yaml:"metrics_namespace" json:"metrics_namespace,omitempty"`
}

// Error is a config validation failure.
type Error struct {
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config %s: %s", e.Path, e.Message)
}

// IsConfigError reports whether err is a config validation failure.
func IsConfigError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// Load reads and validates the file at path.
func Load(path string) (*File, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, &Error{Path: path, Message: err.Error()}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	f, err := Parse(data, format)
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) && ce.Path == "" {
			ce.Path = path
		}
		return nil, err
	}
	return f, nil
}

// Parse decodes and validates data in the given format.
func Parse(data []byte, format Format) (*File, error) {
	switch format {
	case FormatYAML:
		return parseYAML(data)
	case FormatCUE:
		return parseCUE(data)
	}
	return nil, &Error{Message: fmt.Sprintf("unknown format %q", format)}
}

func parseYAML(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, &Error{Message: err.Error()}
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks f against the schema. Files returned by Load and Parse
// are already valid; Validate serves configs decoded elsewhere, such as
// inline scenario blocks.
func (f *File) Validate() error {
	encoded, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	ctx := cuecontext.New()
	return validate(ctx, ctx.CompileBytes(encoded))
}

func parseCUE(data []byte) (*File, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename("config.cue"))
	if err := v.Err(); err != nil {
		return nil, &Error{Message: cueerrors.Details(err, nil)}
	}
	if err := validate(ctx, v); err != nil {
		return nil, err
	}

	var f File
	if err := v.Decode(&f); err != nil {
		return nil, &Error{Message: cueerrors.Details(err, nil)}
	}
	return &f, nil
}

// validate unifies v with #Config and requires a concrete result.
func validate(ctx *cue.Context, v cue.Value) error {
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &Error{Message: strings.TrimSpace(cueerrors.Details(err, nil))}
	}
	return nil
}

// EngineConfig converts the file into an engine policy.
func (f *File) EngineConfig() (engine.Config, error) {
	cfg := engine.DefaultConfig()
	cfg.MaxPending = f.MaxPending
	cfg.MergeKeys = append([]string(nil), f.MergeKeys...)

	if f.Overflow != "" {
		p, err := engine.ParseOverflowPolicy(f.Overflow)
		if err != nil {
			return engine.Config{}, &Error{Message: err.Error()}
		}
		cfg.Overflow = p
	}
	if f.DiffMode != "" {
		m, err := engine.ParseDiffMode(f.DiffMode)
		if err != nil {
			return engine.Config{}, &Error{Message: err.Error()}
		}
		cfg.DiffMode = m
	}
	if f.ThreadCheck != "" {
		m, err := engine.ParseThreadCheckMode(f.ThreadCheck)
		if err != nil {
			return engine.Config{}, &Error{Message: err.Error()}
		}
		cfg.ThreadCheck = m
	}
	return cfg, nil
}

// Options converts the file into engine options.
func (f *File) Options() ([]engine.Option, error) {
	cfg, err := f.EngineConfig()
	if err != nil {
		return nil, err
	}
	return []engine.Option{engine.WithConfig(cfg)}, nil
}
