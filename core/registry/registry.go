// Package registry loads named connection descriptors from a JSON or YAML
// registry file. Passwords in the file are Fernet tokens; the registry never
// decrypts them, it only carries them to the backend layer.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dbbridge/dbbridge/core/shared/errors"
)

// DefaultPath is where the registry file lives unless a flag says otherwise.
const DefaultPath = "config/database-config.json"

// Supported rdbms values. Anything else is rejected when a bridge is built,
// not at load time, so a registry can carry entries for backends this build
// does not speak.
const (
	RDBMSOracle     = "oracle"
	RDBMSSQLServer  = "sqlserver"
	RDBMSPostgreSQL = "postgresql"
	RDBMSMySQL      = "mysql"
)

var validate = validator.New()

// Port holds a TCP port. Registry files in the wild carry ports both as
// numbers and as strings, so it decodes from either.
type Port string

// UnmarshalJSON accepts a JSON string or number.
func (p *Port) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*p = ""
	case string:
		*p = Port(v)
	case float64:
		*p = Port(strconv.FormatInt(int64(v), 10))
	default:
		return fmt.Errorf("port: unsupported JSON value %v", raw)
	}
	return nil
}

// UnmarshalYAML accepts a YAML string or integer scalar.
func (p *Port) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		*p = Port(s)
		return nil
	}
	var n int
	if err := value.Decode(&n); err == nil {
		*p = Port(strconv.Itoa(n))
		return nil
	}
	return fmt.Errorf("port: unsupported YAML value %q", value.Value)
}

// String returns the port as text, empty when unset.
func (p Port) String() string {
	return string(p)
}

// Int parses the port as an integer.
func (p Port) Int() (int, error) {
	return strconv.Atoi(string(p))
}

// IntOr parses the port, falling back to def when unset or unparseable.
func (p Port) IntOr(def int) int {
	if p == "" {
		return def
	}
	n, err := p.Int()
	if err != nil {
		return def
	}
	return n
}

// Connection is one named connection descriptor from the registry file.
type Connection struct {
	Name        string `json:"connection-name" yaml:"connection-name" validate:"required"`
	RDBMS       string `json:"rdbms" yaml:"rdbms" validate:"required"`
	Active      bool   `json:"active" yaml:"active"`
	Username    string `json:"username,omitempty" yaml:"username,omitempty"`
	Password    string `json:"password,omitempty" yaml:"password,omitempty"`
	Server      string `json:"server,omitempty" yaml:"server,omitempty"`
	Port        Port   `json:"port,omitempty" yaml:"port,omitempty"`
	Database    string `json:"database-name,omitempty" yaml:"database-name,omitempty"`
	ServiceName string `json:"service-name,omitempty" yaml:"service-name,omitempty"`
	DSN         string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// Registry is a parsed registry file.
type Registry struct {
	path        string
	connections []Connection
}

// Load reads and parses a registry file. The format is chosen by extension:
// .yaml/.yml parse as YAML, everything else as JSON.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Sprintf("cannot read registry file %s", path), err)
	}
	return Parse(data, path)
}

// Parse parses registry file contents. The path is used for format selection
// and error messages only.
func Parse(data []byte, path string) (*Registry, error) {
	var connections []Connection
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &connections)
	default:
		err = json.Unmarshal(data, &connections)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Sprintf("cannot parse registry file %s", path), err)
	}

	for i, conn := range connections {
		if err := validate.Struct(conn); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigInvalid,
				fmt.Sprintf("registry entry %d in %s is incomplete", i, path), err)
		}
	}

	return &Registry{path: path, connections: connections}, nil
}

// Path returns the file path this registry was loaded from.
func (r *Registry) Path() string {
	return r.path
}

// Connections returns a copy of all entries, active or not.
func (r *Registry) Connections() []Connection {
	out := make([]Connection, len(r.connections))
	copy(out, r.connections)
	return out
}

// Active returns a copy of the active entries in file order.
func (r *Registry) Active() []Connection {
	var out []Connection
	for _, conn := range r.connections {
		if conn.Active {
			out = append(out, conn)
		}
	}
	return out
}

// Lookup finds the single active connection with the given name. A name that
// only matches inactive entries reports not-found with a hint; a name with
// more than one active entry is a registry authoring error and is rejected
// rather than silently resolved to the first match.
func (r *Registry) Lookup(name string) (Connection, error) {
	var matches []Connection
	inactive := false
	for _, conn := range r.connections {
		if conn.Name != name {
			continue
		}
		if !conn.Active {
			inactive = true
			continue
		}
		matches = append(matches, conn)
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		if inactive {
			return Connection{}, errors.Newf(errors.ErrCodeConnectionNotFound,
				"connection %q in %s is not active", name, r.path)
		}
		return Connection{}, errors.Newf(errors.ErrCodeConnectionNotFound,
			"unable to find active connection %q in %s", name, r.path)
	default:
		return Connection{}, errors.Newf(errors.ErrCodeConnectionAmbiguous,
			"%d active connections named %q in %s", len(matches), name, r.path)
	}
}

// EncryptPasswords returns a copy of the registry with every non-empty
// password replaced by encrypt(password).
func (r *Registry) EncryptPasswords(encrypt func(string) (string, error)) (*Registry, error) {
	out := &Registry{path: r.path, connections: make([]Connection, len(r.connections))}
	copy(out.connections, r.connections)
	for i := range out.connections {
		if out.connections[i].Password == "" {
			continue
		}
		token, err := encrypt(out.connections[i].Password)
		if err != nil {
			return nil, fmt.Errorf("encrypt password for %q: %w", out.connections[i].Name, err)
		}
		out.connections[i].Password = token
	}
	return out, nil
}

// WriteFile writes the registry to path, choosing the format by extension
// the same way Load does.
func (r *Registry) WriteFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(r.connections)
	default:
		data, err = json.MarshalIndent(r.connections, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	}
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// EncryptedSiblingPath derives the output path for an encrypted registry from
// its plaintext source, stripping a "-plaintext" name suffix when present.
// A file without the suffix derives to itself, which means encrypt-in-place.
func EncryptedSiblingPath(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	base = strings.TrimSuffix(base, "-plaintext")
	return base + ext
}
