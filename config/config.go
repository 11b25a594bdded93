package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from the usual "2s" notation.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)

	return nil
}

// Config is the full configuration surface of the harness. Everything is
// supplied at construction; the harness owns no persisted state.
type Config struct {
	// Versions is the ordered upgrade sequence. The first entry is the
	// bootstrap version.
	Versions []string `yaml:"versions"`

	Cluster struct {
		Size         int      `yaml:"size"`
		Image        string   `yaml:"image"`
		Prefix       string   `yaml:"prefix"`
		HostPortBase int      `yaml:"host_port_base"`
		Env          []string `yaml:"env"`
	} `yaml:"cluster"`

	Service struct {
		Scheme string `yaml:"scheme"`
	} `yaml:"service"`

	Health struct {
		Interval Duration `yaml:"interval"`
		Attempts int      `yaml:"attempts"`
	} `yaml:"health"`

	Read struct {
		Interval Duration `yaml:"interval"`
		Attempts int      `yaml:"attempts"`
	} `yaml:"read"`
}

// Default returns the configuration used when no file is given: a three-node
// Weaviate cluster published on localhost ports.
func Default() *Config {
	c := &Config{}

	c.Cluster.Size = 3
	c.Cluster.Image = "semitechnologies/weaviate"
	c.Cluster.Prefix = "upgrade-journey"
	c.Cluster.HostPortBase = 8080
	c.Cluster.Env = []string{
		"AUTHENTICATION_ANONYMOUS_ACCESS_ENABLED=true",
		"PERSISTENCE_DATA_PATH=/var/lib/weaviate",
		"QUERY_DEFAULTS_LIMIT=25",
		"DEFAULT_VECTORIZER_MODULE=none",
		"CLUSTER_GOSSIP_BIND_PORT=7100",
		"CLUSTER_DATA_BIND_PORT=7101",
	}

	c.Service.Scheme = "http"

	c.Health.Interval = Duration(2 * time.Second)
	c.Health.Attempts = 30

	c.Read.Interval = Duration(time.Second)
	c.Read.Attempts = 5

	return c
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return c, nil
}

// Validate checks the parts of the config that have no usable zero value.
// The version list is validated separately, when the sequence is built.
func (c *Config) Validate() error {
	if c.Cluster.Size <= 0 {
		return errors.New("cluster size must be positive")
	}

	if c.Cluster.Image == "" {
		return errors.New("cluster image is required")
	}

	if c.Cluster.HostPortBase <= 0 {
		return errors.New("host port base must be positive")
	}

	if c.Health.Attempts <= 0 || c.Read.Attempts <= 0 {
		return errors.New("attempt budgets must be positive")
	}

	if c.Health.Interval <= 0 || c.Read.Interval <= 0 {
		return errors.New("poll intervals must be positive")
	}

	return nil
}
