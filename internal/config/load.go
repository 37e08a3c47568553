package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"

	"github.com/roach88/edmd/internal/snapshot"
)

// Format is a configuration file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatCUE:
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unknown config format %q", s)
	}
}

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("config %s has no extension", path)
	}
	return ParseFormat(ext)
}

// Load reads, validates and resolves the configuration file at path.
func Load(path string) (*Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if format == FormatCUE {
		return loadCUE(path, data)
	}
	return Parse(data, format, path)
}

// loadCUE loads a CUE file through the CUE loader, so that imports
// relative to its module resolve.
func loadCUE(path string, data []byte) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	instances := load.Instances([]string{filepath.Base(abs)}, &load.Config{Dir: filepath.Dir(abs)})
	if len(instances) == 0 {
		return nil, &Error{Field: "load", Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &Error{Field: "load", Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}
	ctx := cuecontext.New()
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return resolve(ctx, v, data, FormatCUE)
}

// Parse validates and resolves a configuration document. filename is
// only used in error positions.
func Parse(data []byte, format Format, filename string) (*Config, error) {
	ctx := cuecontext.New()
	switch format {
	case FormatCUE:
		v := ctx.CompileBytes(data, cue.Filename(filename))
		if err := v.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		return resolve(ctx, v, data, format)

	case FormatYAML:
		// Strict decoding catches typos like "interaction:" for
		// "interactions:" before the schema sees the document.
		var raw Config
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &Error{Field: "config", Message: "empty document"}
			}
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		v := ctx.Encode(raw)
		if err := v.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		return resolve(ctx, v, data, format)

	default:
		return nil, fmt.Errorf("unknown config format %q", format)
	}
}

// resolve unifies v with the schema, applies defaults and decodes it.
func resolve(ctx *cue.Context, v cue.Value, data []byte, format Format) (*Config, error) {
	s, err := schema(ctx)
	if err != nil {
		return nil, err
	}
	u := s.Unify(v)
	if err := u.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	var cfg Config
	if err := u.Decode(&cfg); err != nil {
		return nil, formatCUEError(err)
	}
	canon, err := json.Marshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("hash config: %w", err)
	}
	cfg.source = data
	cfg.format = format
	cfg.hash = snapshot.HashWithDomain(DomainConfig, canon)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
