package sources

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/retailsync/pkg/errors"
)

// Format is an input file format.
type Format string

const (
	// FormatCSV is comma-separated values with a header row.
	FormatCSV Format = "csv"
	// FormatTSV is tab-separated values with a header row.
	FormatTSV Format = "tsv"
	// FormatJSON is an array of objects, or an object with a "records" array.
	FormatJSON Format = "json"
	// FormatYAML is a sequence of mappings, or a mapping with a "records" sequence.
	FormatYAML Format = "yaml"
)

// DetectFormat picks a format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".tsv":
		return FormatTSV, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: cannot detect format of %s", errors.ErrUnsupported, path)
}

// FileSpec describes a file-backed source. Field tags match the entries of
// the CLI config file's sources list.
type FileSpec struct {
	Name   string `mapstructure:"name" json:"name" yaml:"name"`
	Path   string `mapstructure:"path" json:"path" yaml:"path"`
	Format Format `mapstructure:"format" json:"format,omitempty" yaml:"format,omitempty"`
	Schema Schema `mapstructure:"schema" json:"schema,omitempty" yaml:"schema,omitempty"`
}

// LoadFile reads and decodes the file described by spec.
func LoadFile(ctx context.Context, spec FileSpec) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapCanceled("source "+spec.Name, err)
	}
	if spec.Name == "" {
		return nil, errors.NewValidationError("name", spec.Name, "source name is required")
	}

	format := spec.Format
	if format == "" {
		detected, err := DetectFormat(spec.Path)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	f, err := os.Open(spec.Path)
	if err != nil {
		return nil, errors.WrapIO("open", spec.Path, err)
	}
	defer func() { _ = f.Close() }()

	rows, err := ReadRows(f, format)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.File = spec.Path
		}
		return nil, err
	}
	return spec.Schema.Decode(spec.Name, rows), nil
}

// ReadRows parses every row of r in the given format.
func ReadRows(r io.Reader, format Format) ([]Row, error) {
	switch format {
	case FormatCSV:
		return readDelimited(r, ',')
	case FormatTSV:
		return readDelimited(r, '\t')
	case FormatJSON:
		return readJSON(r)
	case FormatYAML:
		return readYAML(r)
	}
	return nil, fmt.Errorf("%w: format %q", errors.ErrUnsupported, format)
}

func readDelimited(r io.Reader, sep rune) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.Comma = sep
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapParse("csv", "", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []Row
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapParse("csv", "", err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(fields) {
				row[col] = fields[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// envelope is the wrapped form of a JSON or YAML input.
type envelope struct {
	Records []Row `json:"records" yaml:"records"`
}

func readJSON(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapIO("read", "", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "{") {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, errors.WrapParse("json", "", err)
		}
		return env.Records, nil
	}
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	return rows, nil
}

func readYAML(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WrapIO("read", "", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var rows []Row
	if err := yaml.Unmarshal(data, &rows); err == nil {
		return rows, nil
	}
	var env envelope
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}
	return env.Records, nil
}

// FileSource reads records from a file on every call.
type FileSource struct {
	spec FileSpec
}

// NewFileSource creates a source backed by the file described by spec.
func NewFileSource(spec FileSpec) *FileSource {
	return &FileSource{spec: spec}
}

// ID returns the source name.
func (s *FileSource) ID() ID {
	return ID(s.spec.Name)
}

// Spec returns the file spec.
func (s *FileSource) Spec() FileSpec {
	return s.spec
}

// Records reads and decodes the file.
func (s *FileSource) Records(ctx context.Context) (*Batch, error) {
	return LoadFile(ctx, s.spec)
}
