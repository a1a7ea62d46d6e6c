// Package config loads the declarative startup configuration (spec.md
// §6) from a single YAML file, following the teacher's cmd/warren/apply.go
// os.ReadFile + yaml.Unmarshal pattern rather than a flag-driven or
// environment-variable scheme.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/bffhd/pkg/bffherr"
)

// Listen is one TCP endpoint the RPC API binds to.
type Listen struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port,omitempty"`
}

// Privileges is the four-permission bundle for one machine catalogue
// entry (spec.md §6 "machines").
type Privileges struct {
	Disclose string `yaml:"disclose"`
	Read     string `yaml:"read"`
	Write    string `yaml:"write"`
	Manage   string `yaml:"manage"`
}

// Machine is one declarative resource catalogue entry.
type Machine struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Wiki        string     `yaml:"wiki,omitempty"`
	Category    string     `yaml:"category,omitempty"`
	Privileges  Privileges `yaml:"privileges"`
}

// Role is one declarative role-DAG entry (spec.md §6 "roles").
type Role struct {
	Parents     []string `yaml:"parents,omitempty"`
	Permissions []string `yaml:"permissions,omitempty"`
}

// Config is the whole of spec.md §6's "Configuration" section, the
// single immutable object threaded into every subsystem constructor at
// startup (spec.md §9 "Global configuration singleton").
type Config struct {
	Listens      []Listen           `yaml:"listens"`
	TLSKeyFile   string             `yaml:"tlskeyfile"`
	TLSCertFile  string             `yaml:"tlscertfile"`
	TLSKeyLog    string             `yaml:"tlskeylog,omitempty"`
	DBPath       string             `yaml:"db_path"`
	AuditLogPath string             `yaml:"auditlog_path"`
	Machines     map[string]Machine `yaml:"machines"`
	Roles        map[string]Role    `yaml:"roles"`
	SpaceName    string             `yaml:"spacename"`
}

// Load reads and parses the YAML file at path. Any failure — missing
// file, malformed YAML, or a structurally invalid document — is
// reported as bffherr.KindConfigInvalid (spec.md §7), fatal at startup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bffherr.Wrap(bffherr.KindConfigInvalid, fmt.Sprintf("config: reading %s", path), err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, bffherr.Wrap(bffherr.KindConfigInvalid, fmt.Sprintf("config: parsing %s", path), err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Listens) == 0 {
		return bffherr.New(bffherr.KindConfigInvalid, "config: at least one listen address is required")
	}
	if c.TLSKeyFile == "" || c.TLSCertFile == "" {
		return bffherr.New(bffherr.KindConfigInvalid, "config: tlskeyfile and tlscertfile are required")
	}
	if c.DBPath == "" {
		return bffherr.New(bffherr.KindConfigInvalid, "config: db_path is required")
	}
	if c.AuditLogPath == "" {
		return bffherr.New(bffherr.KindConfigInvalid, "config: auditlog_path is required")
	}
	for id, m := range c.Machines {
		if m.Privileges.Disclose == "" || m.Privileges.Read == "" || m.Privileges.Write == "" || m.Privileges.Manage == "" {
			return bffherr.New(bffherr.KindConfigInvalid, fmt.Sprintf("config: machine %q is missing a privilege", id))
		}
	}
	return nil
}
