package plugin

import (
	"fmt"
	"sort"
)

// OutputOptions carries what any output factory might need
type OutputOptions struct {
	BadgerPath string
	BatchSize  int
	MIDIPort   int
	MIDIRoot   uint8
}

// Outputs is the global map of OutputAdapter factories
var Outputs = map[string]func(OutputOptions) (OutputAdapter, error){
	"badger": func(o OutputOptions) (OutputAdapter, error) {
		out, err := NewBadgerOutput(o.BadgerPath, o.BatchSize)
		if err != nil {
			return nil, err
		}
		return out, nil
	},
	"midi": func(o OutputOptions) (OutputAdapter, error) {
		out, err := NewMIDIOutput(o.MIDIPort, o.MIDIRoot)
		if err != nil {
			return nil, err
		}
		return out, nil
	},
}

func OutputLookup(name string, opts OutputOptions) (OutputAdapter, error) {
	factory, ok := Outputs[name]
	if !ok {
		return nil, fmt.Errorf("unknown output: %s", name)
	}
	return factory(opts)
}

// OutputNames lists the registered outputs, sorted
func OutputNames() []string {
	names := make([]string, 0, len(Outputs))
	for name := range Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
