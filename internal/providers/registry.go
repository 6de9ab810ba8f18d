package providers

import (
	"fmt"

	"github.com/securedocs/backend/config"
	"github.com/securedocs/backend/pkg/logger"
	"github.com/securedocs/backend/pkg/units"
)

// Descriptor describes a provider's capabilities for display and preflight checks.
type Descriptor struct {
	Name                 string `json:"name"`
	Enabled              bool   `json:"enabled"`
	Configured           bool   `json:"configured"`
	Permanent            bool   `json:"permanent"`
	MaxFileSize          int64  `json:"maxFileSize"`
	MaxFileSizeFormatted string `json:"maxFileSizeFormatted"`
	Default              bool   `json:"default"`
}

// Registry holds the provider clients built at startup. It is never mutated
// afterwards and is safe for concurrent use.
type Registry struct {
	clients     map[Kind]Client
	enabled     map[Kind]bool
	defaultKind Kind
}

// New builds the client for kind from configuration.
func New(kind Kind, cfg *config.Config, log logger.Logger) Client {
	timeouts := Timeouts{
		Upload:  cfg.Blockchain.UploadTimeout,
		Request: cfg.Blockchain.RequestTimeout,
	}

	switch kind {
	case KindPinata:
		return NewPinataClient(cfg.Pinata, timeouts, log)
	case KindArweave:
		return NewArweaveClient(cfg.Arweave, timeouts, log)
	default:
		panic(fmt.Sprintf("providers: unhandled kind %q", kind))
	}
}

// NewRegistry builds every provider client and records which ones are enabled.
func NewRegistry(cfg *config.Config, log logger.Logger) (*Registry, error) {
	defaultKind, err := ParseKind(cfg.Blockchain.DefaultProvider)
	if err != nil {
		return nil, fmt.Errorf("invalid default provider: %w", err)
	}

	r := &Registry{
		clients:     make(map[Kind]Client, len(Kinds)),
		enabled:     make(map[Kind]bool, len(Kinds)),
		defaultKind: defaultKind,
	}

	for _, kind := range Kinds {
		r.clients[kind] = New(kind, cfg, log)
	}
	r.enabled[KindPinata] = cfg.Pinata.Enabled
	r.enabled[KindArweave] = cfg.Arweave.Enabled

	for _, kind := range Kinds {
		client := r.clients[kind]
		log.WithFields(map[string]interface{}{
			"provider":   kind,
			"enabled":    r.enabled[kind],
			"configured": client.IsConfigured(),
		}).Info("Registered storage provider")
	}

	return r, nil
}

// NewStaticRegistry registers the given clients, all enabled. The first client is the default.
func NewStaticRegistry(clients ...Client) (*Registry, error) {
	if len(clients) == 0 {
		return nil, fmt.Errorf("at least one provider client is required")
	}

	r := &Registry{
		clients: make(map[Kind]Client, len(clients)),
		enabled: make(map[Kind]bool, len(clients)),
	}
	for i, c := range clients {
		kind, err := ParseKind(c.Name())
		if err != nil {
			return nil, err
		}
		if i == 0 {
			r.defaultKind = kind
		}
		r.clients[kind] = c
		r.enabled[kind] = true
	}

	return r, nil
}

// DefaultName returns the name used when a caller does not pick a provider.
func (r *Registry) DefaultName() string {
	return string(r.defaultKind)
}

// Resolve returns name, or the default provider name when name is empty.
func (r *Registry) Resolve(name string) string {
	if name == "" {
		return r.DefaultName()
	}
	return name
}

// Get returns the client for name. It fails with ErrUnknownProvider for names
// outside the closed set and ErrProviderDisabled for disabled providers.
// Whether the client has credentials is left to the caller (Client.IsConfigured).
func (r *Registry) Get(name string) (Client, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}

	client, ok := r.clients[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	if !r.enabled[kind] {
		return nil, fmt.Errorf("%w: %q", ErrProviderDisabled, name)
	}

	return client, nil
}

// Default returns the client for the configured default provider.
func (r *Registry) Default() (Client, error) {
	return r.Get(r.DefaultName())
}

// Descriptor returns the descriptor for one provider.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	kind, err := ParseKind(name)
	if err != nil {
		return Descriptor{}, false
	}
	for _, d := range r.Descriptors() {
		if d.Name == string(kind) {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Descriptors lists every registered provider, enabled or not.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.clients))
	for _, kind := range Kinds {
		client, ok := r.clients[kind]
		if !ok {
			continue
		}
		out = append(out, Descriptor{
			Name:                 client.Name(),
			Enabled:              r.enabled[kind],
			Configured:           client.IsConfigured(),
			Permanent:            client.Permanent(),
			MaxFileSize:          client.MaxFileSize(),
			MaxFileSizeFormatted: units.FormatBytes(client.MaxFileSize()),
			Default:              kind == r.defaultKind,
		})
	}
	return out
}

// Lookup returns a client regardless of its enabled flag. Removal uses it so
// content stored on a provider that was later disabled can still be unpinned.
func (r *Registry) Lookup(name string) (Client, bool) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, false
	}
	client, ok := r.clients[kind]
	return client, ok
}
