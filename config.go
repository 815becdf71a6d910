package ddns

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Credentials selects how the Cloudflare API is authenticated.
// The only implementations are TokenAuth and KeyAuth.
type Credentials interface {
	credentials()
}

// TokenAuth authenticates with a scoped API token.
type TokenAuth struct {
	Token string
}

// KeyAuth authenticates with the account email and global API key.
type KeyAuth struct {
	Email string
	Key   string
}

func (TokenAuth) credentials() {}
func (KeyAuth) credentials()   {}

// Config is the file configuration of a reconciler.
type Config struct {
	Cloudflare  CloudflareConfig `json:"cloudflare" yaml:"cloudflare"`
	Records     []RecordConfig   `json:"dns_records" yaml:"dns_records"`
	IPEndpoints EndpointsConfig  `json:"ip_endpoints,omitzero" yaml:"ip_endpoints,omitempty"`
}

type CloudflareConfig struct {
	// AuthType is "token" or "emailkey". When empty it is inferred from the populated fields.
	AuthType  string `json:"auth_type,omitempty" yaml:"auth_type,omitempty"`
	APIToken  string `json:"api_token,omitempty" yaml:"api_token,omitempty"`
	AuthEmail string `json:"auth_email,omitempty" yaml:"auth_email,omitempty"`
	AuthKey   string `json:"auth_key,omitempty" yaml:"auth_key,omitempty"`
	ZoneName  string `json:"zone_name" yaml:"zone_name"`
}

type RecordConfig struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	TTL     int    `json:"ttl" yaml:"ttl"`
	Proxied bool   `json:"proxied" yaml:"proxied"`
	// IPVersion is "v4" or "v6".
	IPVersion string `json:"ip_version" yaml:"ip_version"`
}

// EndpointsConfig overrides the echo services used to look up the address.
type EndpointsConfig struct {
	V4 string `json:"v4,omitempty" yaml:"v4,omitempty"`
	V6 string `json:"v6,omitempty" yaml:"v6,omitempty"`
}

// LoadConfig reads a JSON or YAML (".yaml", ".yml") configuration file and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config file: %w", ErrConfig, err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parsing config file %s: %w", ErrConfig, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields every mode needs.
// Credentials are checked by Credentials, which only the modes that talk to Cloudflare call.
// Per-record problems are left to the reconciler.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Cloudflare.ZoneName == "" {
		errs = append(errs, errors.New("cloudflare.zone_name is required"))
	}
	if len(cfg.Records) == 0 {
		errs = append(errs, errors.New("dns_records must list at least one record"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

// Credentials returns the authentication variant described by the config.
// Exactly one variant must be fully populated.
func (c CloudflareConfig) Credentials() (Credentials, error) {
	hasToken := c.APIToken != ""
	hasKey := c.AuthEmail != "" || c.AuthKey != ""

	authType := c.AuthType
	if authType == "" {
		switch {
		case hasToken && !hasKey:
			authType = "token"
		case hasKey && !hasToken:
			authType = "emailkey"
		case hasToken && hasKey:
			return nil, fmt.Errorf("%w: both api_token and auth_email/auth_key are set; set auth_type or remove one", ErrConfig)
		default:
			return nil, fmt.Errorf("%w: no cloudflare credentials configured", ErrConfig)
		}
	}

	switch authType {
	case "token":
		if !hasToken {
			return nil, fmt.Errorf("%w: api_token is required for auth_type token", ErrConfig)
		}
		if hasKey {
			return nil, fmt.Errorf("%w: auth_email/auth_key must be empty for auth_type token", ErrConfig)
		}
		return TokenAuth{Token: c.APIToken}, nil
	case "emailkey":
		if c.AuthEmail == "" || c.AuthKey == "" {
			return nil, fmt.Errorf("%w: auth_email and auth_key are required for auth_type emailkey", ErrConfig)
		}
		if hasToken {
			return nil, fmt.Errorf("%w: api_token must be empty for auth_type emailkey", ErrConfig)
		}
		return KeyAuth{Email: c.AuthEmail, Key: c.AuthKey}, nil
	}
	return nil, fmt.Errorf("%w: unsupported auth_type %q", ErrConfig, c.AuthType)
}

// ManagedRecords converts the configured records.
// Unknown ip versions are kept as FamilyUnknown so that the reconciler reports them per record.
func (cfg *Config) ManagedRecords() []ManagedRecord {
	records := make([]ManagedRecord, 0, len(cfg.Records))
	for _, rc := range cfg.Records {
		family, _ := ParseFamily(rc.IPVersion)
		records = append(records, ManagedRecord{
			Name:    rc.Name,
			Kind:    Kind(strings.ToUpper(rc.Type)),
			TTL:     rc.TTL,
			Proxied: rc.Proxied,
			Family:  family,
		})
	}
	return records
}
