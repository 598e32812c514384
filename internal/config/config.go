package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Options struct {
	// The maximum number of modules finalized at once. Zero means one per CPU.
	Workers int

	// If true, every finalized module is checked for identifiers that the
	// reference rewriter didn't visit
	Validate bool

	LogLevel zapcore.Level

	// If empty, output files are only returned and never written
	AbsOutputDir string

	// The extension of every generated chunk, including the dot
	OutputExtension string

	// Top-level statements that dead code elimination removed, keyed by the
	// absolute path of the file
	ExcludedStmts map[string][]uint32
}

func DefaultOptions() Options {
	return Options{
		LogLevel:        zapcore.WarnLevel,
		OutputExtension: ".js",
	}
}

// A manifest describes one build. Files can either be written inline or point
// at a file on disk relative to the manifest:
//
//	entryPoints: [entry.js]
//	files:
//	  entry.js: |
//	    import {a} from './a'
//	    console.log(a)
//	  a.js:
//	    path: src/a.js
//	    exclude: [1]
//	workers: 4
//	validate: true
//	logLevel: debug
type Manifest struct {
	EntryPoints []string             `yaml:"entryPoints"`
	Files       map[string]*FileSpec `yaml:"files"`
	Workers     int                  `yaml:"workers,omitempty"`
	Validate    bool                 `yaml:"validate,omitempty"`
	LogLevel    string               `yaml:"logLevel,omitempty"`
	OutDir      string               `yaml:"outdir,omitempty"`
}

type FileSpec struct {
	Contents string `yaml:"contents,omitempty"`
	Path     string `yaml:"path,omitempty"`

	// Top-level statements that dead code elimination removed. These are
	// indices into the statements of the parsed file.
	Exclude []uint32 `yaml:"exclude,omitempty"`
}

// A plain string is shorthand for "contents"
func (spec *FileSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		spec.Contents = node.Value
		return nil
	}
	type plain FileSpec
	return node.Decode((*plain)(spec))
}

// Unknown fields are errors so that typos don't silently change the build
func ParseManifest(data []byte) (*Manifest, error) {
	manifest := &Manifest{}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(manifest); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

func (m *Manifest) validate() error {
	if len(m.EntryPoints) == 0 {
		return errors.New("the manifest must have at least one entry point")
	}
	if m.Workers < 0 {
		return fmt.Errorf("invalid worker count %d", m.Workers)
	}
	if _, err := ParseLogLevel(m.LogLevel); err != nil {
		return err
	}
	for _, name := range m.SortedFileNames() {
		spec := m.Files[name]
		if spec == nil {
			return fmt.Errorf("file %q has no contents", name)
		}
		if spec.Path != "" && spec.Contents != "" {
			return fmt.Errorf("file %q cannot have both \"path\" and \"contents\"", name)
		}
	}
	return nil
}

// Replaces every "path" entry with the contents of that file. Relative paths
// are relative to "dir".
func (m *Manifest) LoadFiles(dir string, readFile func(string) ([]byte, error)) error {
	for _, name := range m.SortedFileNames() {
		spec := m.Files[name]
		if spec.Path == "" {
			continue
		}
		path := spec.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		contents, err := readFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %q for file %q: %w", spec.Path, name, err)
		}
		spec.Contents = string(contents)
		spec.Path = ""
	}
	return nil
}

func (m *Manifest) SortedFileNames() []string {
	names := make([]string, 0, len(m.Files))
	for name := range m.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// The manifest's settings on top of the defaults
func (m *Manifest) Options() Options {
	options := DefaultOptions()
	options.Workers = m.Workers
	options.Validate = m.Validate
	if level, err := ParseLogLevel(m.LogLevel); err == nil {
		options.LogLevel = level
	}
	if m.OutDir != "" {
		options.AbsOutputDir = m.OutDir
	}
	return options
}

// An empty string means the default level
func ParseLogLevel(text string) (zapcore.Level, error) {
	if text == "" {
		return DefaultOptions().LogLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(text)); err != nil {
		return level, fmt.Errorf("invalid log level %q", text)
	}
	return level, nil
}
