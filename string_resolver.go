package ddns

import (
	"context"
	"fmt"
	"net/netip"
)

// FromString constructs a resolver that always reports addr.
//
// Only the family addr belongs to is served;
// asking for the other family fails with ErrAddressUnavailable.
func FromString(addr string) (Resolver, error) {
	a, err := netip.ParseAddr(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to parse IP: %w", ErrConfig, err)
	}
	return stringResolver{addr: a.Unmap()}, nil
}

type stringResolver struct {
	addr netip.Addr
}

func (s stringResolver) Resolve(_ context.Context, family Family) (string, error) {
	if familyOf(s.addr) != family {
		return "", fmt.Errorf("%w: static address %s is not an ip %s address", ErrAddressUnavailable, s.addr, family)
	}
	return s.addr.String(), nil
}

func familyOf(a netip.Addr) Family {
	if a.Is4() {
		return IPv4
	}
	if a.Is6() {
		return IPv6
	}
	return FamilyUnknown
}
