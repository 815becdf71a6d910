package ddns

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"
)

const publishedLookupTimeout = 5 * time.Second

// LookupPublished asks the nameserver at server ("host:port") which addresses are published for name.
//
// An NXDOMAIN answer returns no addresses and no error.
// Proxied Cloudflare records answer with Cloudflare's edge addresses, not the record content.
func LookupPublished(ctx context.Context, server, name string, kind Kind) ([]string, error) {
	var qtype uint16
	switch kind {
	case KindA:
		qtype = dns.TypeA
	case KindAAAA:
		qtype = dns.TypeAAAA
	default:
		return nil, fmt.Errorf("%w: unsupported record type %q", ErrConfig, kind)
	}

	ctx, cancel := context.WithTimeout(ctx, publishedLookupTimeout)
	defer cancel()

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	c := &dns.Client{Timeout: publishedLookupTimeout}
	r, _, err := c.ExchangeContext(ctx, m, server)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", server, err)
	}
	switch r.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, nil
	default:
		return nil, fmt.Errorf("query %s: server answered %s", server, dns.RcodeToString[r.Rcode])
	}

	var addrs []string
	for _, rr := range r.Answer {
		switch v := rr.(type) {
		case *dns.A:
			if qtype == dns.TypeA {
				addrs = append(addrs, v.A.String())
			}
		case *dns.AAAA:
			if qtype == dns.TypeAAAA {
				addrs = append(addrs, v.AAAA.String())
			}
		}
	}
	return addrs, nil
}
