// Package config loads conversion options from a YAML file, mirroring
// how the CLI persists user preferences between runs. Missing files
// are not errors; defaults apply.
package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/yknothing/clipdown/core"
)

// File is the on-disk configuration schema. Every field is optional;
// omitted fields defer to the documented defaults. Booleans that
// default to true are pointers so an omitted key is distinguishable
// from an explicit false.
type File struct {
	Options struct {
		HeadingStyle     string `yaml:"headingStyle"`
		BulletListMarker string `yaml:"bulletListMarker"`
		CodeBlockStyle   string `yaml:"codeBlockStyle"`
		Fence            string `yaml:"fence"`
		LinkStyle        string `yaml:"linkStyle"`
		ImageStyle       string `yaml:"imageStyle"`
		ImageRefStyle    string `yaml:"imageRefStyle"`
		Frontmatter      string `yaml:"frontmatter"`
		Backmatter       string `yaml:"backmatter"`
		DownloadImages   bool   `yaml:"downloadImages"`
		ImagePrefix      string `yaml:"imagePrefix"`
		Escape           *bool  `yaml:"escape"`
		DisallowedChars  string `yaml:"disallowedChars"`
	} `yaml:"options"`

	Extract struct {
		UseReader       *bool `yaml:"useReader"`
		StripAttributes bool  `yaml:"stripAttributes"`
		Sanitize        bool  `yaml:"sanitize"`
	} `yaml:"extract"`

	OutputDir string `yaml:"outputDir"`
}

// Settings is the merged, ready-to-use configuration.
type Settings struct {
	Options         core.ConversionOptions
	UseReader       bool
	StripAttributes bool
	Sanitize        bool
	OutputDir       string
}

// Load reads path and merges it over the defaults. An empty path or a
// missing file yields the defaults unchanged.
func Load(path string) (*Settings, error) {
	settings := &Settings{
		Options:   core.DefaultOptions(),
		UseReader: true,
	}
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	o := &settings.Options
	f := file.Options
	setIf(&o.HeadingStyle, f.HeadingStyle)
	setIf(&o.BulletListMarker, f.BulletListMarker)
	setIf(&o.CodeBlockStyle, f.CodeBlockStyle)
	setIf(&o.Fence, f.Fence)
	setIf(&o.LinkStyle, f.LinkStyle)
	setIf(&o.ImageStyle, f.ImageStyle)
	setIf(&o.ImageRefStyle, f.ImageRefStyle)
	setIf(&o.Frontmatter, f.Frontmatter)
	setIf(&o.Backmatter, f.Backmatter)
	setIf(&o.ImagePrefix, f.ImagePrefix)
	setIf(&o.DisallowedChars, f.DisallowedChars)
	o.DownloadImages = f.DownloadImages
	if f.Escape != nil {
		o.Escape = *f.Escape
	}

	if file.Extract.UseReader != nil {
		settings.UseReader = *file.Extract.UseReader
	}
	settings.StripAttributes = file.Extract.StripAttributes
	settings.Sanitize = file.Extract.Sanitize
	setIf(&settings.OutputDir, file.OutputDir)

	return settings, nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
