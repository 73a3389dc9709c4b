package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/tailscale/hujson"
)

// EnvPrefix starts the name of every environment variable read by Load.
const EnvPrefix = "CSIM_"

// DotEnvFileName is the default environment file.
const DotEnvFileName = ".env"

// PositionalFields lists, in order, the fields of the positional form
// `csim <nsets> <bsize> <assoc> <repl> <verbosity> <input_file>`.
var PositionalFields = []string{
	"nsets", "bsize", "assoc", "repl", "verbosity", "input",
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	ConfigPath string            // --config flag value; empty means no file
	DotEnvPath string            // .env file; a missing file is ignored
	Env        map[string]string // environment; nil means os.Environ
	Args       []string          // positional arguments
	Flags      *pflag.FlagSet    // only flags marked Changed are applied
	Ignore     []string          // flags that Load must not apply
}

// Load resolves a configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Config file (JSON with comments)
// 3. Environment variables, then the .env file for names the environment
// does not set
// 4. Positional arguments
// 5. Flags set on the command line.
//
// The result is validated.
func Load(input LoadInput) (Config, error) {
	cfg := Default()

	if input.ConfigPath != "" {
		var err error

		cfg, err = loadFile(cfg, input.ConfigPath)
		if err != nil {
			return Config{}, err
		}

		cfg.Sources.File = input.ConfigPath
	}

	env := input.Env
	if env == nil {
		env = environ()
	}

	dotEnv, err := readDotEnv(input.DotEnvPath)
	if err != nil {
		return Config{}, err
	}

	if dotEnv != nil {
		cfg.Sources.DotEnv = input.DotEnvPath
	}

	err = applyEnv(&cfg, mergeEnv(env, dotEnv))
	if err != nil {
		return Config{}, err
	}

	err = applyArgs(&cfg, input.Args)
	if err != nil {
		return Config{}, err
	}

	err = applyFlags(&cfg, input.Flags, input.Ignore)
	if err != nil {
		return Config{}, err
	}

	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadFile(base Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
	}

	if err != nil {
		return Config{}, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: invalid JSONC: %w",
			ErrConfigInvalid, path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()

	cfg := base

	err = dec.Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, nil
}

func environ() map[string]string {
	env := make(map[string]string)

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok {
			env[key] = value
		}
	}

	return env
}

func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	return values, nil
}

// mergeEnv overlays env on dotEnv so that real variables always win.
func mergeEnv(env, dotEnv map[string]string) map[string]string {
	merged := make(map[string]string, len(env)+len(dotEnv))

	for k, v := range dotEnv {
		merged[k] = v
	}

	for k, v := range env {
		merged[k] = v
	}

	return merged
}

func applyEnv(cfg *Config, env map[string]string) error {
	for _, f := range fields {
		raw, ok := env[EnvPrefix+strings.ToUpper(f.name)]
		if !ok {
			continue
		}

		err := f.set(cfg, raw)
		if err != nil {
			return err
		}
	}

	return nil
}

func applyArgs(cfg *Config, args []string) error {
	if len(args) > len(PositionalFields) {
		return fmt.Errorf("%w: got %d, accept at most %d",
			ErrTooManyArguments, len(args), len(PositionalFields))
	}

	for i, raw := range args {
		err := cfg.Set(PositionalFields[i], raw)
		if err != nil {
			return err
		}
	}

	return nil
}

func applyFlags(cfg *Config, flags *pflag.FlagSet, ignore []string) error {
	if flags == nil {
		return nil
	}

	for _, f := range fields {
		if !flags.Changed(f.name) || slices.Contains(ignore, f.name) {
			continue
		}

		err := f.set(cfg, flags.Lookup(f.name).Value.String())
		if err != nil {
			return err
		}
	}

	return nil
}

// Set parses raw into the named field the same way the command line does.
func (c *Config) Set(name, raw string) error {
	for _, f := range fields {
		if f.name == name {
			return f.set(c, raw)
		}
	}

	return fmt.Errorf("unknown config field %q", name)
}

type field struct {
	name string
	set  func(cfg *Config, raw string) error
}

var fields = []field{
	{"nsets", func(c *Config, raw string) error {
		return parseInt("nsets", raw, &c.NumSets)
	}},
	{"bsize", func(c *Config, raw string) error {
		return parseSize("bsize", raw, &c.BlockSize)
	}},
	{"assoc", func(c *Config, raw string) error {
		return parseInt("assoc", raw, &c.Associativity)
	}},
	{"repl", func(c *Config, raw string) error {
		c.Replacement = raw
		return nil
	}},
	{"kind", func(c *Config, raw string) error {
		c.Kind = raw
		return nil
	}},
	{"verbosity", func(c *Config, raw string) error {
		return parseInt("verbosity", raw, &c.Verbosity)
	}},
	{"input", func(c *Config, raw string) error {
		c.Input = raw
		return nil
	}},
	{"size", func(c *Config, raw string) error {
		return parseSize("size", raw, &c.Size)
	}},
	{"seed", func(c *Config, raw string) error {
		seed, err := strconv.ParseUint(raw, 0, 64)
		if err != nil {
			return &ConfigError{Field: "seed", Value: raw, Reason: "is not an unsigned 64-bit number"}
		}

		c.Seed = &seed

		return nil
	}},
	{"pattern", func(c *Config, raw string) error {
		c.Pattern = raw
		return nil
	}},
	{"span", func(c *Config, raw string) error {
		span, err := strconv.ParseUint(raw, 0, 64)
		if err != nil {
			return &ConfigError{Field: "span", Value: raw, Reason: "is not an unsigned number"}
		}

		c.Span = span

		return nil
	}},
	{"stride", func(c *Config, raw string) error {
		stride, err := strconv.ParseUint(raw, 0, 32)
		if err != nil {
			return &ConfigError{Field: "stride", Value: raw, Reason: "is not an unsigned 32-bit number"}
		}

		c.Stride = uint32(stride)

		return nil
	}},
}

func parseInt(name, raw string, dst *int) error {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return &ConfigError{Field: name, Value: raw, Reason: "is not a number"}
	}

	*dst = v

	return nil
}

// parseSize accepts plain numbers as well as sizes such as "64B" or "1KiB".
func parseSize(name, raw string, dst *int) error {
	v, err := humanize.ParseBytes(raw)
	if err != nil || v > 1<<32 {
		return &ConfigError{Field: name, Value: raw, Reason: "is not a size"}
	}

	*dst = int(v)

	return nil
}
