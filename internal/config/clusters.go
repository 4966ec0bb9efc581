package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ClusterSeed describes one managed cluster declared in the seed file
type ClusterSeed struct {
	Name          string `yaml:"name"`
	ClusterID     string `yaml:"clusterID"`
	APIURL        string `yaml:"apiURL"`
	PrometheusURL string `yaml:"prometheusURL"`
	BearerToken   string `yaml:"bearerToken"`
	TokenFile     string `yaml:"tokenFile"`
	Description   string `yaml:"description"`
	Enabled       bool   `yaml:"enabled"`
}

// ClustersFile represents the full cluster seed file
type ClustersFile struct {
	Clusters []ClusterSeed `yaml:"clusters"`
}

// LoadClusterSeeds reads cluster profiles to register at startup.
// A missing file yields no seeds.
func LoadClusterSeeds(path string) ([]ClusterSeed, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var file ClustersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	seen := make(map[string]bool, len(file.Clusters))
	for i := range file.Clusters {
		seed := &file.Clusters[i]
		if seed.Name == "" || seed.ClusterID == "" || seed.APIURL == "" {
			return nil, fmt.Errorf("cluster entry %d: name, clusterID and apiURL are required", i)
		}
		if seen[seed.ClusterID] {
			return nil, fmt.Errorf("duplicate clusterID %q", seed.ClusterID)
		}
		seen[seed.ClusterID] = true

		if seed.BearerToken == "" && seed.TokenFile != "" {
			token, err := os.ReadFile(seed.TokenFile)
			if err != nil {
				return nil, fmt.Errorf("cluster %s: failed to read token file: %w", seed.Name, err)
			}
			seed.BearerToken = strings.TrimSpace(string(token))
		}
	}

	return file.Clusters, nil
}
