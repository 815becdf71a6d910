package ddns

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Observation is what Check found out about one managed record.
type Observation struct {
	Record ManagedRecord
	// Address is the current address of the host for the record's family.
	Address string
	// Published are the addresses the nameserver currently answers with, when a nameserver is configured.
	Published []string
	Err       error
}

// Current reports whether the published addresses are exactly the observed address.
func (o Observation) Current() bool {
	return o.Err == nil && len(o.Published) == 1 && o.Published[0] == o.Address
}

// Check resolves the current address for every managed record without calling the RecordStore.
//
// When a nameserver was configured with WithNameserver, the published value of each record is looked up too.
// A failed lookup is only logged.
func (c *Client) Check(ctx context.Context) []Observation {
	observations := make([]Observation, len(c.records))
	addrs := addressCache{}
	for i, rec := range c.records {
		o := &observations[i]
		o.Record = rec
		if o.Err = rec.Validate(); o.Err != nil {
			continue
		}
		if o.Address, o.Err = addrs.resolve(ctx, c.resolver, rec.Family); o.Err != nil {
			continue
		}
		if c.nameserver == "" {
			continue
		}
		published, err := LookupPublished(ctx, c.nameserver, rec.Name, rec.Kind)
		if err != nil {
			c.logger.Warn("published record lookup failed", "record", rec.Name, "nameserver", c.nameserver, "err", err)
			continue
		}
		slices.Sort(published)
		o.Published = published
	}
	return observations
}

// RunCheck runs Check and logs one line per record.
// It fails if any record's address could not be determined.
func (c *Client) RunCheck(ctx context.Context) error {
	var errs []error
	for _, o := range c.Check(ctx) {
		if o.Err != nil {
			c.logger.Warn("check failed", "record", o.Record.Name, "ip_version", o.Record.Family, "err", o.Err)
			errs = append(errs, fmt.Errorf("%s: %w", o.Record.Name, o.Err))
			continue
		}
		c.logger.Info("observed address",
			"record", o.Record.Name,
			"ip_version", o.Record.Family,
			"address", o.Address,
			"published", o.Published,
			"current", o.Current(),
		)
	}
	c.logger.Info("check-only pass finished, no records were changed")
	return errors.Join(errs...)
}
