package app

import (
	"fmt"
	"strings"

	"github.com/agentstation/retailsync/pkg/errors"
	"github.com/agentstation/retailsync/pkg/sources"
)

// buildSources creates the configured sources plus the ad hoc name=path
// file sources. Names must be unique.
func buildSources(cfgs []SourceConfig, adhoc []string) (*sources.Sources, error) {
	all := append([]SourceConfig(nil), cfgs...)
	for _, arg := range adhoc {
		name, path, ok := strings.Cut(arg, "=")
		if !ok || name == "" || path == "" {
			return nil, errors.NewConfigError("cli", "source", fmt.Sprintf("expected name=path, got %q", arg))
		}
		all = append(all, SourceConfig{Name: name, Type: SourceFile, Path: path})
	}

	srcs := sources.NewSources()
	for _, c := range all {
		if _, dup := srcs.Get(sources.ID(c.Name)); dup {
			return nil, errors.NewConfigError("cli", "sources", fmt.Sprintf("duplicate source %q", c.Name))
		}
		src, err := newSource(c)
		if err != nil {
			return nil, err
		}
		srcs.Set(sources.ID(c.Name), src)
	}
	return srcs, nil
}

// newSource creates one source from its config entry.
func newSource(c SourceConfig) (sources.Source, error) {
	if c.Name == "" {
		return nil, errors.NewConfigError("cli", "sources", "source name cannot be empty")
	}

	switch c.Type {
	case SourceFile, "":
		if c.Path == "" {
			return nil, errors.NewConfigError("cli", "sources", fmt.Sprintf("file source %q has no path", c.Name))
		}
		return sources.NewFileSource(sources.FileSpec{
			Name:   c.Name,
			Path:   c.Path,
			Format: c.Format,
			Schema: c.Schema,
		}), nil
	case SourceCensus:
		if len(c.Census) == 0 {
			return nil, errors.NewConfigError("cli", "sources", fmt.Sprintf("census source %q has no files", c.Name))
		}
		return sources.NewCensusSource(c.Name, c.Census...), nil
	case SourceFRED:
		if len(c.Series) == 0 {
			return nil, errors.NewConfigError("cli", "sources", fmt.Sprintf("fred source %q has no series", c.Name))
		}
		// Config keys are case-folded; FRED series ids are upper case.
		files := make(map[string]string, len(c.Series))
		for id, path := range c.Series {
			files[strings.ToUpper(id)] = path
		}
		return sources.NewFREDSource(c.Name, files), nil
	case SourceWeather:
		if c.Path == "" {
			return nil, errors.NewConfigError("cli", "sources", fmt.Sprintf("weather source %q has no path", c.Name))
		}
		if c.Year < 1 {
			return nil, errors.NewConfigError("cli", "sources", fmt.Sprintf("weather source %q has no year", c.Name))
		}
		return sources.NewWeatherSource(c.Name, c.Path, c.Year), nil
	default:
		return nil, errors.NewConfigError("cli", "sources", fmt.Sprintf("source %q has unknown type %q", c.Name, c.Type))
	}
}
