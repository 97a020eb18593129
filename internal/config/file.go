package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML layout. Either section may be omitted.
//
//	scan:
//	  request:
//	    max_concurrency: 32
//	  corpus: /opt/SecLists/Discovery/Web-Content
//	serve:
//	  listen: ":9000"
//	  retention: 15m
type File struct {
	Scan  *Options       `yaml:"scan"`
	Serve *ServerOptions `yaml:"serve"`
}

// LoadFile decodes the YAML file at path on top of scan and serve. Keys absent
// from the file leave the existing values untouched; nil targets are skipped.
func LoadFile(path string, scan *Options, serve *ServerOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if scan == nil {
		scan = &Options{}
	}
	if serve == nil {
		serve = &ServerOptions{}
	}
	f := File{Scan: scan, Serve: serve}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}
