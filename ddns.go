package ddns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudflare/cloudflare-go"
)

// DefaultResolver asks the public echo services for the address of each family.
var DefaultResolver Resolver = &webResolver{endpoints: defaultEndpoints()}

var discard = slog.New(slog.DiscardHandler)

// New creates a Client that keeps records inside zone pointed at the current address.
//
// A RecordStore must be registered with UsingCloudflare or UsingRecordStore.
// Records are validated on every pass rather than here,
// so that one bad record is reported without blocking the others.
func New(zone string, records []ManagedRecord, options ...clientOption) (*Client, error) {
	c, err := newClient("ddns.New", zone, records, options)
	if err != nil {
		return nil, err
	}
	if c.store == nil {
		return nil, fmt.Errorf("ddns.New: %w: no record store was registered - use ddns.UsingCloudflare or similar", ErrConfig)
	}
	return c, nil
}

// NewChecker creates a Client for Check and RunCheck only.
// No RecordStore is required, so no credentials are needed.
// Reconcile on a Client without a store fails every record with ErrConfig.
func NewChecker(zone string, records []ManagedRecord, options ...clientOption) (*Client, error) {
	return newClient("ddns.NewChecker", zone, records, options)
}

func newClient(caller, zone string, records []ManagedRecord, options []clientOption) (*Client, error) {
	if zone == "" {
		return nil, fmt.Errorf("%s: %w: zone cannot be empty", caller, ErrConfig)
	}
	c := &Client{
		resolver: DefaultResolver,
		zone:     zone,
		records:  append([]ManagedRecord(nil), records...),
	}
	for i, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("%s: option %d returned an error: %w", caller, i, err)
		}
	}

	// options may register dependencies after WithLogger or UsingHTTPClient was applied
	c.propagate()
	return c, nil
}

type clientOption func(*Client) error

// UsingCloudflare registers the Cloudflare API as the RecordStore.
// opts are passed through to the cloudflare-go client.
func UsingCloudflare(creds Credentials, opts ...cloudflare.Option) clientOption {
	return func(c *Client) (err error) {
		if c.store, err = newCloudflareStore(creds, opts...); err != nil {
			return fmt.Errorf("ddns.UsingCloudflare: error creating cloudflare record store: %w", err)
		}
		return nil
	}
}

// UsingRecordStore registers any RecordStore implementation.
func UsingRecordStore(store RecordStore) clientOption {
	return func(c *Client) error {
		if store == nil {
			return errors.New("record store cannot be nil")
		}
		c.store = store
		return nil
	}
}

func UsingResolver(resolver Resolver) clientOption {
	return func(c *Client) error {
		if resolver == nil {
			resolver = DefaultResolver
		}
		c.resolver = resolver
		return nil
	}
}

// UsingWebResolver looks addresses up with the given echo services.
// An empty URL selects the default service for that family.
func UsingWebResolver(v4URL, v6URL string) clientOption {
	return func(c *Client) (err error) {
		c.resolver, err = WebResolver(v4URL, v6URL)
		return err
	}
}

func WithLogger(logger *slog.Logger) clientOption {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

func UsingHTTPClient(httpclient *http.Client) clientOption {
	return func(c *Client) error {
		c.httpClient = httpclient
		return nil
	}
}

// ForceUpdate makes every pass update existing records even when their content already matches.
func ForceUpdate(force bool) clientOption {
	return func(c *Client) error {
		c.force = force
		return nil
	}
}

// WithNameserver sets the DNS server ("host:port") that Check queries for the published record values.
// An empty address disables the lookup.
func WithNameserver(addr string) clientOption {
	return func(c *Client) error {
		c.nameserver = addr
		return nil
	}
}

func (c *Client) propagate() {
	if c.logger == nil {
		c.logger = discard
	}
	type setLogger interface {
		SetLogger(*slog.Logger)
	}
	for _, dep := range []any{c.store, c.resolver} {
		if d, ok := dep.(setLogger); ok {
			d.SetLogger(c.logger)
		}
	}

	if c.httpClient == nil {
		return
	}
	if s, ok := c.store.(*cloudflareStore); ok {
		cloudflare.HTTPClient(c.httpClient)(s.api)
	}
	if r, ok := c.resolver.(*webResolver); ok {
		r.httpClient = c.httpClient
	}
}

// DDNSClient runs one unit of DDNS work.
type DDNSClient interface {
	RunDDNS(ctx context.Context) error
}

// RunFunc adapts an ordinary function to the DDNSClient interface.
type RunFunc func(ctx context.Context) error

func (f RunFunc) RunDDNS(ctx context.Context) error {
	return f(ctx)
}

// Client reconciles managed records against a RecordStore.
type Client struct {
	resolver   Resolver
	store      RecordStore
	logger     *slog.Logger
	httpClient *http.Client
	zone       string
	records    []ManagedRecord
	force      bool
	nameserver string
}

// RunDDNS runs one reconciliation pass.
// The returned error joins every failed record, or is the pass-fatal error.
func (c *Client) RunDDNS(ctx context.Context) error {
	report := c.Reconcile(ctx)
	c.logger.Info("pass finished",
		"created", report.Count(Created),
		"updated", report.Count(Updated),
		"unchanged", report.Count(Unchanged),
		"failed", report.Count(Failed),
		"elapsed", report.Elapsed,
	)
	return report.Err()
}

// Reconcile runs one pass over every managed record and reports one outcome per record.
//
// Records are processed one at a time. A failure is confined to its record,
// except for credential failures, which abort the rest of the pass.
func (c *Client) Reconcile(ctx context.Context) Report {
	start := time.Now()
	report := Report{Outcomes: make([]Outcome, len(c.records))}

	var pending []int
	for i, rec := range c.records {
		report.Outcomes[i].Record = rec
		if c.store == nil {
			report.Outcomes[i].fail(fmt.Errorf("%w: client has no record store", ErrConfig))
			continue
		}
		if err := rec.Validate(); err != nil {
			c.logger.Warn("skipping invalid record", "record", rec.Name, "err", err)
			report.Outcomes[i].fail(err)
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) > 0 {
		c.reconcile(ctx, &report, pending)
	}

	report.Elapsed = time.Since(start)
	observePass(report)
	return report
}

func (c *Client) reconcile(ctx context.Context, report *Report, pending []int) {
	zoneID, err := c.store.FindZone(ctx, c.zone)
	if err != nil {
		err = fmt.Errorf("zone %s: %w", c.zone, err)
		if isZoneFatal(err) {
			c.logger.Error("aborting pass", "zone", c.zone, "err", err)
			report.Fatal = err
		}
		for _, i := range pending {
			report.Outcomes[i].fail(err)
		}
		return
	}
	c.logger.Debug("found zone", "zone", c.zone, "id", zoneID)

	addrs := addressCache{}
	for n, i := range pending {
		o := &report.Outcomes[i]
		c.reconcileRecord(ctx, zoneID, addrs, o)
		if o.Action != Failed {
			continue
		}
		c.logger.Warn("record failed", "record", o.Record.Name, "err", o.Err)
		if isFatal(o.Err) {
			c.logger.Error("aborting pass", "record", o.Record.Name, "err", o.Err)
			report.Fatal = o.Err
			for _, j := range pending[n+1:] {
				report.Outcomes[j].fail(fmt.Errorf("%w: %w", ErrAborted, o.Err))
			}
			return
		}
	}
}

func (c *Client) reconcileRecord(ctx context.Context, zoneID string, addrs addressCache, o *Outcome) {
	rec := o.Record
	addr, err := addrs.resolve(ctx, c.resolver, rec.Family)
	if err != nil {
		o.fail(err)
		return
	}
	o.Address = addr

	recordID, err := c.store.FindRecord(ctx, zoneID, rec.Name, rec.Kind)
	if errors.Is(err, ErrNotFound) {
		created, err := c.store.CreateRecord(ctx, zoneID, rec.spec(addr))
		if err != nil {
			o.fail(fmt.Errorf("%w: %w", ErrCreate, err))
			return
		}
		c.logger.Info("created record", "record", rec.Name, "type", rec.Kind, "address", created.Content)
		o.Action = Created
		return
	}
	if err != nil {
		o.fail(fmt.Errorf("find record: %w", err))
		return
	}

	// always re-read: the remote state may have changed since the last pass
	remote, err := c.store.GetRecord(ctx, zoneID, recordID)
	if err != nil {
		o.fail(fmt.Errorf("get record %s: %w", recordID, err))
		return
	}
	o.Previous = remote.Content

	if remote.Content == addr && !c.force {
		c.logger.Debug("record is current", "record", rec.Name, "address", addr)
		o.Action = Unchanged
		return
	}

	updated, err := c.store.UpdateRecord(ctx, zoneID, recordID, rec.spec(addr))
	if err != nil {
		o.fail(fmt.Errorf("%w: %w", ErrUpdate, err))
		return
	}
	c.logger.Info("updated record", "record", rec.Name, "type", rec.Kind, "old", remote.Content, "address", updated.Content)
	o.Action = Updated
}

// addressCache holds the addresses observed during one pass, so records of the same family share a lookup.
type addressCache map[Family]lookup

type lookup struct {
	addr string
	err  error
}

func (ac addressCache) resolve(ctx context.Context, r Resolver, family Family) (string, error) {
	if o, ok := ac[family]; ok {
		return o.addr, o.err
	}
	addr, err := r.Resolve(ctx, family)
	if err == nil && addr == "" {
		err = errors.New("resolver returned an empty address")
	}
	if err != nil && !errors.Is(err, ErrAddressUnavailable) {
		err = fmt.Errorf("%w: %w", ErrAddressUnavailable, err)
	}
	ac[family] = lookup{addr, err}
	return addr, err
}

// Action is the result of reconciling one record.
type Action int

const (
	Failed Action = iota
	Created
	Updated
	Unchanged
)

func (a Action) String() string {
	switch a {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	}
	return "failed"
}

// Outcome is the result of reconciling one managed record during a pass.
type Outcome struct {
	Record ManagedRecord
	Action Action
	// Address is the observed address, if one was resolved.
	Address string
	// Previous is the remote content before the pass, for existing records.
	Previous string
	// Err is set when Action is Failed.
	Err error
}

func (o *Outcome) fail(err error) {
	o.Action = Failed
	o.Err = err
}

// Report is the result of one pass.
type Report struct {
	Outcomes []Outcome
	// Fatal is set when the pass was aborted by a zone or credential failure.
	Fatal   error
	Elapsed time.Duration
}

// OK reports whether no record failed.
func (r Report) OK() bool {
	return r.Fatal == nil && r.Count(Failed) == 0
}

// Count returns the number of outcomes with action a.
func (r Report) Count(a Action) (n int) {
	for _, o := range r.Outcomes {
		if o.Action == a {
			n++
		}
	}
	return n
}

// Err returns nil for a successful pass.
func (r Report) Err() error {
	if r.Fatal != nil {
		return fmt.Errorf("pass aborted: %w", r.Fatal)
	}
	var errs []error
	for _, o := range r.Outcomes {
		if o.Action == Failed {
			errs = append(errs, fmt.Errorf("%s: %w", o.Record.Name, o.Err))
		}
	}
	return errors.Join(errs...)
}
