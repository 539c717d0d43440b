package config

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/ejustice-portal/bootstrap/pkg/config/secrets"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Section names understood by RegisterProviders.
const (
	SectionVault        = "vault"
	SectionAWS          = "aws"
	SectionFileResolver = "file_resolver"
	SectionServer       = "server"
)

// Format is the encoding of a bootstrap file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// File is a bootstrap file split into named top-level sections. Sections are
// decoded on demand with Get, so every caller receives its own copy.
type File struct {
	path     string
	format   Format
	sections map[string]any
}

// ReadFile reads a YAML (.yaml, .yml) or TOML (.toml) bootstrap file.
func ReadFile(path string) (*File, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- the bootstrap file path is operator supplied
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read configuration file %q", path)
	}

	file, err := Parse(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse configuration file %q", path)
	}
	file.path = path
	log.Debug().Str("file", path).Strs("sections", file.Sections()).Msg("Bootstrap file read")
	return file, nil
}

// Parse decodes raw bootstrap file content in the given format.
func Parse(data []byte, format Format) (*File, error) {
	sections := make(map[string]any)
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &sections)
	case FormatTOML:
		err = toml.Unmarshal(data, &sections)
	default:
		return nil, errors.Errorf("unsupported configuration format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return &File{format: format, sections: sections}, nil
}

// Has reports whether the file contains a non-empty section named key.
func (f *File) Has(key string) bool {
	if f == nil {
		return false
	}
	section, exists := f.sections[key]
	return exists && section != nil
}

// Sections returns the sorted top-level section names.
func (f *File) Sections() []string {
	if f == nil {
		return nil
	}
	names := make([]string, 0, len(f.sections))
	for name := range f.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get decodes the section named key into a new T, resolves secret references in
// its string fields through registry (skipped when registry is nil) and validates
// the result.
func Get[T Validatable](f *File, key string, registry *secrets.Registry) (*T, error) {
	if !f.Has(key) {
		return nil, errors.Errorf("no configuration found for %q", key)
	}

	partial, err := decode[T](f.format, f.sections[key])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode section %q", key)
	}

	if registry != nil {
		if err = expandVariables(reflect.ValueOf(partial).Elem(), registry); err != nil {
			return nil, errors.Wrapf(err, "failed to resolve section %q", key)
		}
	}

	if err = (*partial).Validate(); err != nil {
		return nil, errors.Wrapf(err, "section %q is invalid", key)
	}
	return partial, nil
}

// RegisterProviders builds a secret provider for every provider section present in
// f and registers it on registry. Sections are handled in the order
// file_resolver, vault, aws, so later sections may reference secrets served by
// earlier ones.
func RegisterProviders(f *File, registry *secrets.Registry) error {
	if f.Has(SectionFileResolver) {
		cfg, err := Get[secrets.FileConfig](f, SectionFileResolver, registry)
		if err != nil {
			return err
		}
		provider, err := cfg.CreateClient()
		if err != nil {
			return errors.Wrap(err, "failed to create file secret provider")
		}
		registry.Register("file", provider)
	}

	if f.Has(SectionVault) {
		cfg, err := Get[secrets.VaultConfig](f, SectionVault, registry)
		if err != nil {
			return err
		}
		client, err := cfg.CreateClient()
		if err != nil {
			return errors.Wrap(err, "failed to create Vault client")
		}
		registry.Register("vault", secrets.NewVaultProvider(client, cfg.Path))
	}

	if f.Has(SectionAWS) {
		cfg, err := Get[secrets.AWSConfig](f, SectionAWS, registry)
		if err != nil {
			return err
		}
		client, err := cfg.CreateClient()
		if err != nil {
			return errors.Wrap(err, "failed to create AWS Secrets Manager client")
		}
		registry.Register("aws", secrets.NewAWSProvider(client, cfg.SecretName))
	}

	log.Debug().Strs("prefixes", registry.Prefixes()).Msg("Secret providers registered")
	return nil
}

// decode re-encodes a generic section and decodes it into T with the same codec
// the file was read with, so yaml and toml struct tags both apply.
func decode[T any](format Format, section any) (*T, error) {
	var (
		result T
		data   []byte
		err    error
	)
	switch format {
	case FormatTOML:
		if data, err = toml.Marshal(section); err == nil {
			err = toml.Unmarshal(data, &result)
		}
	default:
		if data, err = yaml.Marshal(section); err == nil {
			err = yaml.Unmarshal(data, &result)
		}
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func formatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", errors.Errorf("unsupported configuration file extension %q", filepath.Ext(path))
	}
}
