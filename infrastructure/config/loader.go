package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML configuration file shape. Values are
// expanded with ${VAR} environment references before parsing; environment
// variables always win over file values.
type fileConfig struct {
	Project     string `yaml:"project"`
	Region      string `yaml:"region"`
	Timeout     int    `yaml:"timeout"`
	Credentials struct {
		JSON string `yaml:"json"`
		File string `yaml:"file"`
	} `yaml:"credentials"`
}

// Load builds the Default Context from the environment, optionally layered
// over a YAML configuration file. path may be empty.
func Load(path string) (*Context, error) {
	var fc fileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &fc); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	s := Settings{
		ProjectID:       firstNonEmpty(os.Getenv(EnvProjectID), fc.Project),
		Region:          firstNonEmpty(os.Getenv(EnvLocation), fc.Region),
		CredentialsFile: firstNonEmpty(os.Getenv(EnvCredentialsFile), os.Getenv(EnvKeyPath), fc.Credentials.File),
	}

	if inline := firstNonEmpty(os.Getenv(EnvCredentialsJSON), fc.Credentials.JSON); inline != "" {
		s.CredentialsJSON = []byte(inline)
	}

	if raw := os.Getenv(EnvOperationTimeout); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid %s value %q: want positive seconds", EnvOperationTimeout, raw)
		}
		s.Timeout = time.Duration(secs) * time.Second
	} else if fc.Timeout > 0 {
		s.Timeout = time.Duration(fc.Timeout) * time.Second
	}

	return NewContext(s), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
