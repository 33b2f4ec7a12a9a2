package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	// SlideConfig describes the deck's design resolution - the reference
	// frame container sizes resolve against when the document itself does
	// not specify them.
	SlideConfig struct {
		Width  int `yaml:"width" validate:"min=1"`
		Height int `yaml:"height" validate:"min=1"`
	}

	FetchConfig struct {
		AllowRemote    bool `yaml:"allow_remote"`
		TimeoutSeconds int  `yaml:"timeout_seconds" validate:"min=1,max=600"`
	}

	ImagesConfig struct {
		Prescale     PrescaleMode `yaml:"prescale" validate:"gte=0"`
		RasterizeSVG bool         `yaml:"rasterize_svg"`
		JPEGQuality  int          `yaml:"jpeg_quality_level" validate:"min=40,max=100"`
		CachePath    string       `yaml:"cache_path,omitempty" sanitize:"path_clean" validate:"omitempty,filepath"`
		Fetch        FetchConfig  `yaml:"fetch"`
	}

	DeckConfig struct {
		SlideTag           string       `yaml:"slide_tag" validate:"required,alphanum"`
		ContainerClass     string       `yaml:"container_class" validate:"required"`
		Slide              SlideConfig  `yaml:"slide"`
		StylesheetPath     string       `yaml:"stylesheet_path,omitempty" sanitize:"assure_file_access" validate:"omitempty"`
		OutputNameTemplate string       `yaml:"output_name_template"`
		Transliterate      bool         `yaml:"file_name_transliterate"`
		InlineSVG          bool         `yaml:"inline_svg"`
		Images             ImagesConfig `yaml:"images"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Deck      DeckConfig     `yaml:"deck"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
