package cli

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/patchbridge/pkg/observability"
)

// Output formats accepted by --format
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

func printStructured(format string, v interface{}) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// newLogger builds the stderr logger commands use for progress
func newLogger(verbose bool) *logrus.Logger {
	level := logrus.WarnLevel
	if verbose {
		level = logrus.DebugLevel
	}
	return observability.NewLogger(level, observability.FormatText, stderr)
}
