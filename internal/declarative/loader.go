package declarative

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadOptions configures YAML loading behavior.
type LoadOptions struct {
	AllowUnknownFields bool
}

// LoadDirectory reads every YAML file under dir and returns the desired state.
func LoadDirectory(dir string) (*DesiredState, error) {
	return LoadDirectoryWithOptions(dir, LoadOptions{})
}

// LoadDirectoryWithOptions reads every YAML file under dir using
// caller-provided loading options. Files are read in lexical order; a file
// may hold several documents separated by "---".
func LoadDirectoryWithOptions(dir string, opts LoadOptions) (*DesiredState, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("config directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("config directory: %s is not a directory", dir)
	}

	state := &DesiredState{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(path) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		return loadFile(path, filepath.ToSlash(rel), state, opts)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// loadFile appends every document of the file at path to state. rel is the
// path recorded on the loaded resources.
func loadFile(path, rel string, state *DesiredState, opts LoadOptions) error {
	data, err := os.ReadFile(path) //nolint:gosec // intentional: reading user-specified config files
	if err != nil {
		return fmt.Errorf("read %s: %w", rel, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	for i := 0; ; i++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse %s: %w", rel, err)
		}
		if err := loadDocument(&node, rel, state, opts); err != nil {
			return fmt.Errorf("%s (document %d): %w", rel, i+1, err)
		}
	}
}

func loadDocument(node *yaml.Node, rel string, state *DesiredState, opts LoadOptions) error {
	var doc Document
	if err := node.Decode(&doc); err != nil {
		return err
	}
	if doc.APIVersion != APIVersion {
		return fmt.Errorf("unsupported apiVersion %q (expected %q)", doc.APIVersion, APIVersion)
	}

	switch doc.Kind {
	case DocKindTable:
		var t TableDoc
		if err := decodeNode(node, &t, opts); err != nil {
			return err
		}
		state.Tables = append(state.Tables, TableResource{
			Name:               t.Metadata.Name,
			DeletionProtection: t.Metadata.DeletionProtection,
			Spec:               t.Spec,
			Source:             rel,
		})
	case DocKindTableList:
		var l TableListDoc
		if err := decodeNode(node, &l, opts); err != nil {
			return err
		}
		for _, item := range l.Tables {
			state.Tables = append(state.Tables, TableResource{
				Name:               item.Name,
				DeletionProtection: item.DeletionProtection,
				Spec:               TableSpec{Columns: item.Columns},
				Source:             rel,
			})
		}
	default:
		return fmt.Errorf("unknown kind %q", doc.Kind)
	}
	return nil
}

// decodeNode decodes node into target, rejecting unknown fields unless opts
// allows them.
func decodeNode(node *yaml.Node, target any, opts LoadOptions) error {
	if opts.AllowUnknownFields {
		return node.Decode(target)
	}
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(target)
}
