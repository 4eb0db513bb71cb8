// Package loader reads problem instances from CSV tables or a single YAML
// document.
package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kilianp07/drtmdp/core/model"
)

// Source tells Load where the instance lives.
type Source struct {
	// Format is "csv" or "yaml". Empty infers yaml from Instance.
	Format       string `json:"format"`
	ServiceLinks string `json:"service_links"`
	DemandLinks  string `json:"demand_links"`
	Demands      string `json:"demands"`
	Instance     string `json:"instance"`
}

// ResolvedFormat returns the effective format.
func (s Source) ResolvedFormat() string {
	if s.Format != "" {
		return strings.ToLower(s.Format)
	}
	if s.Instance != "" {
		return "yaml"
	}
	return "csv"
}

// Validate checks that the files required by the format are named.
func (s Source) Validate() error {
	switch s.ResolvedFormat() {
	case "csv":
		if s.ServiceLinks == "" || s.DemandLinks == "" || s.Demands == "" {
			return fmt.Errorf("csv input needs service_links, demand_links and demands")
		}
	case "yaml":
		if s.Instance == "" {
			return fmt.Errorf("yaml input needs instance")
		}
	default:
		return fmt.Errorf("unsupported input format %q", s.Format)
	}
	return nil
}

// Load reads the instance described by src.
func Load(src Source) (*model.Instance, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if src.ResolvedFormat() == "yaml" {
		var in *model.Instance
		err := withFile(src.Instance, func(r io.Reader) (err error) {
			in, err = ReadYAML(r)
			return err
		})
		return in, err
	}
	in := &model.Instance{}
	err := withFile(src.ServiceLinks, func(r io.Reader) (err error) {
		in.Service, err = ReadLinks(r, ServiceTable)
		return err
	})
	if err != nil {
		return nil, err
	}
	err = withFile(src.DemandLinks, func(r io.Reader) (err error) {
		in.Rider, err = ReadLinks(r, DemandTable)
		return err
	})
	if err != nil {
		return nil, err
	}
	err = withFile(src.Demands, func(r io.Reader) (err error) {
		in.Demands, err = ReadDemands(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}

func withFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrMalformedInput, err)
	}
	defer func() { _ = f.Close() }()
	if err := fn(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
