package loader

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/drtmdp/core/model"
)

// ReadYAML parses a complete instance document. Demands that name neither
// service link fall back to the legacy id mapping.
func ReadYAML(r io.Reader) (*model.Instance, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var in model.Instance
	if err := dec.Decode(&in); err != nil {
		return nil, &model.MalformedInputError{Kind: "instance", Reason: err.Error()}
	}
	if len(in.Service) == 0 || len(in.Rider) == 0 {
		return nil, &model.MalformedInputError{Kind: "instance", Reason: "service_links and demand_links must not be empty"}
	}
	for i := range in.Demands {
		d := &in.Demands[i]
		if d.ServiceOrigin == 0 && d.ServiceDestination == 0 {
			d.ServiceOrigin = model.LegacyServiceLink(d.Origin)
			d.ServiceDestination = model.LegacyServiceLink(d.Destination)
		}
	}
	return &in, nil
}

// WriteYAML encodes an instance in the format ReadYAML accepts.
func WriteYAML(w io.Writer, in *model.Instance) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(in); err != nil {
		return fmt.Errorf("encode instance: %w", err)
	}
	return enc.Close()
}
