package tempora

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	Mp "github.com/maroda/tempora/plugin"
)

// InitOutputs attaches each named output to the View.
// A comma separated list is accepted; outputs that fail to start are skipped.
func (v *View) InitOutputs(names string, opts Mp.OutputOptions) error {
	var errs []error
	for _, name := range strings.Split(names, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || name == "enoent" {
			continue
		}
		out, err := Mp.OutputLookup(name, opts)
		if err != nil {
			slog.Error("Output not started",
				slog.String("output", name),
				slog.Any("Error", err))
			errs = append(errs, fmt.Errorf("output %s: %w", name, err))
			continue
		}
		v.AddOutput(out)
		slog.Info("Output started", slog.String("output", out.Type()))
	}
	return errors.Join(errs...)
}

// FlushOutputs pushes buffered collisions out of every output
func (v *View) FlushOutputs() error {
	v.MU.Lock()
	outputs := v.Outputs
	v.MU.Unlock()

	var errs []error
	for _, out := range outputs {
		if err := out.Flush(); err != nil {
			v.Stats.RecOutputError(out.Type())
			errs = append(errs, fmt.Errorf("flush %s: %w", out.Type(), err))
		}
	}
	return errors.Join(errs...)
}
