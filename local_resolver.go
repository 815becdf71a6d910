package ddns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// InterfaceResolver constructs a resolver that reports an address assigned to the named interface.
//
// Loopback, link-local and private addresses are skipped,
// since none of them are reachable from outside the local network.
func InterfaceResolver(iface string) Resolver {
	return interfaceResolver{
		name: iface,
		addrs: func() ([]net.Addr, error) {
			i, err := net.InterfaceByName(iface)
			if err != nil {
				return nil, fmt.Errorf("error getting interface %s by name: %w", iface, err)
			}
			return i.Addrs()
		},
	}
}

type interfaceResolver struct {
	name  string
	addrs func() ([]net.Addr, error)
}

func (r interfaceResolver) Resolve(_ context.Context, family Family) (string, error) {
	addrs, err := r.addrs()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAddressUnavailable, err)
	}
	addr, err := pickAddr(addrs, family)
	if err != nil {
		return "", fmt.Errorf("%w: interface %s: %w", ErrAddressUnavailable, r.name, err)
	}
	return addr.String(), nil
}

// pickAddr returns the first public address of family.
func pickAddr(addrs []net.Addr, family Family) (netip.Addr, error) {
	// addr: ip+net:192.168.86.253/24
	// addr: ip+net:fd64:9f44:fc30:0:b951:8b16:2812:a227/64
	// addr: ip+net:fe80::2cc9:801b:3551:9a43/64
	var parseErrors []error
	for _, addr := range addrs {
		p, err := netip.ParsePrefix(addr.String())
		if err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("error parsing local ip %s: %w", addr.String(), err))
			continue
		}
		a := p.Addr().Unmap()
		if familyOf(a) != family || !a.IsGlobalUnicast() || a.IsPrivate() {
			continue
		}
		return a, nil
	}
	return netip.Addr{}, errors.Join(append([]error{fmt.Errorf("no public ip %s address", family)}, parseErrors...)...)
}
