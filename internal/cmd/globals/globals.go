// Package globals provides shared flag definitions and the annotations
// that tie command flags to config keys.
package globals

import (
	"github.com/spf13/pflag"
)

// ConfigKey is the flag annotation naming the config key a flag overrides.
const ConfigKey = "retailsync_config_key"

// BindKeys annotates flags with their config keys. A missing flag is a
// programming error.
func BindKeys(flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := flags.SetAnnotation(name, ConfigKey, []string{key}); err != nil {
			panic("programming error: failed to annotate flag " + name + ": " + err.Error())
		}
	}
}

// Key returns the config key of an annotated flag.
func Key(f *pflag.Flag) (string, bool) {
	keys, ok := f.Annotations[ConfigKey]
	if !ok || len(keys) == 0 {
		return "", false
	}
	return keys[0], true
}

// AddPipelineFlags registers the matcher settings that override the
// config file.
func AddPipelineFlags(flags *pflag.FlagSet) {
	flags.Float64("threshold", 0, "inclusive minimum label similarity in (0,1]")
	flags.String("blocking", "", "matcher blocking: length, first_token, none")
	flags.Int("workers", 0, "concurrent matcher and assembler workers")
	BindKeys(flags, map[string]string{
		"threshold": "similarity_threshold",
		"blocking":  "blocking",
		"workers":   "workers",
	})
}

// AddSourceFlag registers the repeatable ad hoc --source name=path flag.
func AddSourceFlag(flags *pflag.FlagSet, adhoc *[]string) {
	flags.StringArrayVar(adhoc, "source", nil, "ad hoc file source as name=path (repeatable)")
}
