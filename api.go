package ddns

import (
	"context"
	"fmt"
)

// Resolver looks up the current address of the host for one address family.
//
// The returned string is the address as reported by the source;
// implementations are not required to validate its syntax.
type Resolver interface {
	Resolve(ctx context.Context, family Family) (string, error)
}

// ResolverFunc adapts an ordinary function to the Resolver interface.
type ResolverFunc func(ctx context.Context, family Family) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, family Family) (string, error) {
	return f(ctx, family)
}

// RecordStore is the DNS provider API consumed by the reconciler.
//
// Implementations must classify failures by wrapping one of
// [ErrNotFound], [ErrAuth], [ErrTransport] or [ErrResponseParse].
type RecordStore interface {
	FindZone(ctx context.Context, name string) (zoneID string, err error)
	FindRecord(ctx context.Context, zoneID, name string, kind Kind) (recordID string, err error)
	GetRecord(ctx context.Context, zoneID, recordID string) (RemoteRecord, error)
	CreateRecord(ctx context.Context, zoneID string, spec RecordSpec) (RemoteRecord, error)
	UpdateRecord(ctx context.Context, zoneID, recordID string, spec RecordSpec) (RemoteRecord, error)
}

// Family is an IP address family.
type Family int

const (
	FamilyUnknown Family = iota
	IPv4
	IPv6
)

// ParseFamily parses the configuration spelling of an address family ("v4" or "v6").
func ParseFamily(s string) (Family, error) {
	switch s {
	case "v4":
		return IPv4, nil
	case "v6":
		return IPv6, nil
	}
	return FamilyUnknown, fmt.Errorf("%w: unsupported ip version %q", ErrConfig, s)
}

func (f Family) String() string {
	switch f {
	case IPv4:
		return "v4"
	case IPv6:
		return "v6"
	}
	return "unknown"
}

// Kind is a DNS record type. Only address records are managed.
type Kind string

const (
	KindA    Kind = "A"
	KindAAAA Kind = "AAAA"
)

// Family returns the address family a record of this kind holds.
func (k Kind) Family() Family {
	switch k {
	case KindA:
		return IPv4
	case KindAAAA:
		return IPv6
	}
	return FamilyUnknown
}

// ManagedRecord is a DNS record kept in sync with the host address.
type ManagedRecord struct {
	Name    string
	Kind    Kind
	TTL     int
	Proxied bool
	Family  Family
}

// Validate reports a configuration error if the record cannot be reconciled.
// It never performs network calls.
func (r ManagedRecord) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: record name is empty", ErrConfig)
	}
	if r.Family != IPv4 && r.Family != IPv6 {
		return fmt.Errorf("%w: record %s: unsupported ip version", ErrConfig, r.Name)
	}
	if r.Kind.Family() == FamilyUnknown {
		return fmt.Errorf("%w: record %s: unsupported record type %q", ErrConfig, r.Name, r.Kind)
	}
	if r.Kind.Family() != r.Family {
		return fmt.Errorf("%w: record %s: type %s cannot hold a %s address", ErrConfig, r.Name, r.Kind, r.Family)
	}
	return nil
}

// spec builds the desired record state for content.
func (r ManagedRecord) spec(content string) RecordSpec {
	return RecordSpec{
		Name:    r.Name,
		Kind:    r.Kind,
		Content: content,
		TTL:     r.TTL,
		Proxied: r.Proxied,
	}
}

// RecordSpec is the desired state written by CreateRecord and UpdateRecord.
type RecordSpec struct {
	Name    string
	Kind    Kind
	Content string
	TTL     int
	Proxied bool
}

// RemoteRecord is a record as reported by the RecordStore.
type RemoteRecord struct {
	ID      string
	Name    string
	Kind    Kind
	Content string
	TTL     int
	Proxied bool
}
