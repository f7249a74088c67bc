package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// field 表格输出的一行
type field struct {
	Key   string
	Value any
}

// formatter 结果输出；data 用于 json/yaml，rows 用于表格
type formatter interface {
	Write(w io.Writer, data any, rows []field) error
}

func newFormatter(format string) (formatter, error) {
	switch strings.ToLower(format) {
	case "", "table":
		return tableFormatter{}, nil
	case "json":
		return jsonFormatter{}, nil
	case "yaml":
		return yamlFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (table, json, yaml)", format)
	}
}

type tableFormatter struct{}

func (tableFormatter) Write(w io.Writer, _ any, rows []field) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%v\n", strings.ToUpper(r.Key), r.Value)
	}
	return tw.Flush()
}

type jsonFormatter struct{}

func (jsonFormatter) Write(w io.Writer, data any, _ []field) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

type yamlFormatter struct{}

func (yamlFormatter) Write(w io.Writer, data any, _ []field) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}
