package feeders

import (
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// TomlFeeder loads a struct from a TOML file, delegating field mapping to
// BurntSushi/toml's own `toml` struct tags rather than hand-rolling a
// reflection walk the library already does correctly.
type TomlFeeder struct {
	Path string
}

func NewTomlFeeder(path string) *TomlFeeder {
	return &TomlFeeder{Path: path}
}

func (f *TomlFeeder) Feed(structure interface{}) error {
	_, err := toml.DecodeFile(f.Path, structure)
	if err != nil {
		return wrapTomlConvertError(err, "struct", f.Path)
	}
	return nil
}

// YamlFeeder loads a struct from a YAML file via yaml.v3's own `yaml` struct
// tags.
type YamlFeeder struct {
	Path string
}

func NewYamlFeeder(path string) *YamlFeeder {
	return &YamlFeeder{Path: path}
}

func (f *YamlFeeder) Feed(structure interface{}) error {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, structure); err != nil {
		return wrapYamlConvertError(err, "struct", f.Path)
	}
	return nil
}
