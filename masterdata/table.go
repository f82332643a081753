package masterdata

import (
	"net/url"
	"regexp"
	"time"

	"github.com/helixdata/mdkit/store"
)

// nameRe matches table and index names that are safe to embed in store
// identifiers.
var nameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// IndexDefinition declares a secondary index over one record field.
type IndexDefinition struct {
	Name    string `json:"name" mapstructure:"name"`
	KeyPath string `json:"keyPath" mapstructure:"key_path"`
	Unique  bool   `json:"unique,omitempty" mapstructure:"unique"`
}

// TableDefinition describes one master data table: where its records come
// from, how they are keyed, and how often they re-sync.
type TableDefinition struct {
	// Name identifies the table everywhere: registration, reads, events,
	// store partitions.
	Name string `json:"name" mapstructure:"name"`

	// DisplayName is a human readable label. Defaults to Name.
	DisplayName string `json:"displayName,omitempty" mapstructure:"display_name"`

	// Endpoint is the absolute URL records are fetched from.
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// KeyPath locates the primary key inside each record, dot notation for
	// nested fields.
	KeyPath string `json:"keyPath" mapstructure:"key_path"`

	// Indexes are provisioned on the store partition at registration.
	Indexes []IndexDefinition `json:"indexes,omitempty" mapstructure:"indexes"`

	// SyncInterval is the background re-sync period. Zero disables
	// background sync for this table; manual syncs still work.
	SyncInterval time.Duration `json:"syncInterval,omitempty" mapstructure:"sync_interval"`
}

// Validate checks the definition before registration.
func (d TableDefinition) Validate() error {
	if d.Name == "" {
		return ErrTableNameRequired
	}
	if !nameRe.MatchString(d.Name) {
		return ErrInvalidTableName(d.Name)
	}
	if d.Endpoint == "" {
		return ErrEndpointRequired
	}
	u, err := url.Parse(d.Endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidEndpoint(d.Endpoint)
	}
	if d.KeyPath == "" {
		return ErrKeyPathRequired
	}
	if d.SyncInterval != 0 && d.SyncInterval < time.Second {
		return ErrInvalidSyncInterval(d.SyncInterval)
	}
	seen := make(map[string]struct{}, len(d.Indexes))
	for _, ix := range d.Indexes {
		if !nameRe.MatchString(ix.Name) {
			return ErrInvalidIndexName(ix.Name)
		}
		if ix.KeyPath == "" {
			return ErrIndexKeyPathRequired(ix.Name)
		}
		if _, dup := seen[ix.Name]; dup {
			return ErrDuplicateIndex(ix.Name)
		}
		seen[ix.Name] = struct{}{}
	}
	return nil
}

func (d TableDefinition) withDefaults() TableDefinition {
	if d.DisplayName == "" {
		d.DisplayName = d.Name
	}
	return d
}

// schema converts the definition into the store partition layout.
func (d TableDefinition) schema() store.Schema {
	s := store.Schema{Table: d.Name, KeyPath: d.KeyPath}
	for _, ix := range d.Indexes {
		s.Indexes = append(s.Indexes, store.Index{
			Name:    ix.Name,
			KeyPath: ix.KeyPath,
			Unique:  ix.Unique,
		})
	}
	return s
}
