package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadNetwork reads a network fixture from a YAML (or JSON) file
func LoadNetwork(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network file: %w", err)
	}

	var network Network
	if err := yaml.Unmarshal(data, &network); err != nil {
		return nil, fmt.Errorf("parsing network YAML: %w", err)
	}

	if err := network.Validate(); err != nil {
		return nil, fmt.Errorf("invalid network %s: %w", path, err)
	}

	return &network, nil
}

// LoadRouteTypes reads a route-type catalog from a YAML file
func LoadRouteTypes(path string) (*RouteTypeCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading route type file: %w", err)
	}

	var catalog RouteTypeCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing route type YAML: %w", err)
	}

	if err := catalog.Validate(); err != nil {
		return nil, err
	}

	return &catalog, nil
}
