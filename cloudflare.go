package ddns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudflare/cloudflare-go"
)

// unmarshalErrorText is the prefix cloudflare-go uses when a response body does not decode.
const unmarshalErrorText = "error unmarshalling the JSON response"

func newCloudflareAPI(creds Credentials, opts ...cloudflare.Option) (*cloudflare.API, error) {
	// retries belong to the scheduler: a pass makes at most one attempt per call
	opts = append([]cloudflare.Option{
		cloudflare.UsingRetryPolicy(0, 0, 0),
		cloudflare.UserAgent("ddnscf"),
	}, opts...)

	switch c := creds.(type) {
	case TokenAuth:
		return cloudflare.NewWithAPIToken(c.Token, opts...)
	case KeyAuth:
		return cloudflare.New(c.Key, c.Email, opts...)
	case nil:
		return nil, fmt.Errorf("%w: no cloudflare credentials", ErrConfig)
	}
	return nil, fmt.Errorf("%w: unsupported credentials %T", ErrConfig, creds)
}

func newCloudflareStore(creds Credentials, opts ...cloudflare.Option) (*cloudflareStore, error) {
	api, err := newCloudflareAPI(creds, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating cloudflare api client: %w", err)
	}
	return &cloudflareStore{api: api, logger: discard}, nil
}

// cloudflareStore implements ddns.RecordStore.
//
// It should be constructed using newCloudflareStore.
type cloudflareStore struct {
	api    *cloudflare.API
	logger *slog.Logger
}

func (cf *cloudflareStore) SetLogger(l *slog.Logger) {
	cf.logger = l
}

func (cf *cloudflareStore) FindZone(ctx context.Context, name string) (string, error) {
	cf.logger.Debug("looking up zone", "zone", name)
	zones, err := cf.api.ListZones(ctx, name)
	if err != nil {
		return "", classify("list zones", err)
	}
	for _, z := range zones {
		if strings.EqualFold(z.Name, name) {
			return z.ID, nil
		}
	}
	return "", fmt.Errorf("zone %q: %w", name, ErrNotFound)
}

func (cf *cloudflareStore) FindRecord(ctx context.Context, zoneID, name string, kind Kind) (string, error) {
	records, _, err := cf.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.ListDNSRecordsParams{
		Type: string(kind),
		Name: name,
	})
	if err != nil {
		return "", classify("list dns records", err)
	}
	cf.logger.Debug("found existing records", "record", name, "type", kind, "count", len(records))
	if len(records) == 0 {
		return "", fmt.Errorf("%s record %q: %w", kind, name, ErrNotFound)
	}
	if len(records) > 1 {
		cf.logger.Warn("multiple records match, managing the first", "record", name, "type", kind, "id", records[0].ID)
	}
	return records[0].ID, nil
}

func (cf *cloudflareStore) GetRecord(ctx context.Context, zoneID, recordID string) (RemoteRecord, error) {
	r, err := cf.api.GetDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), recordID)
	if err != nil {
		return RemoteRecord{}, classify("get dns record", err)
	}
	return remoteRecord(r), nil
}

func (cf *cloudflareStore) CreateRecord(ctx context.Context, zoneID string, spec RecordSpec) (RemoteRecord, error) {
	r, err := cf.api.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.CreateDNSRecordParams{
		Type:    string(spec.Kind),
		Name:    spec.Name,
		Content: spec.Content,
		TTL:     spec.TTL,
		Proxied: &spec.Proxied,
	})
	if err != nil {
		return RemoteRecord{}, classify("create dns record", err)
	}
	return remoteRecord(r), nil
}

func (cf *cloudflareStore) UpdateRecord(ctx context.Context, zoneID, recordID string, spec RecordSpec) (RemoteRecord, error) {
	r, err := cf.api.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.UpdateDNSRecordParams{
		ID:      recordID,
		Type:    string(spec.Kind),
		Name:    spec.Name,
		Content: spec.Content,
		TTL:     spec.TTL,
		Proxied: &spec.Proxied,
	})
	if err != nil {
		return RemoteRecord{}, classify("update dns record", err)
	}
	return remoteRecord(r), nil
}

func remoteRecord(r cloudflare.DNSRecord) RemoteRecord {
	rr := RemoteRecord{
		ID:      r.ID,
		Name:    r.Name,
		Kind:    Kind(r.Type),
		Content: r.Content,
		TTL:     r.TTL,
	}
	if r.Proxied != nil {
		rr.Proxied = *r.Proxied
	}
	return rr
}

// classify wraps err with the RecordStore error class it belongs to.
func classify(op string, err error) error {
	var (
		authn    *cloudflare.AuthenticationError
		authz    *cloudflare.AuthorizationError
		notFound *cloudflare.NotFoundError
		syntax   *json.SyntaxError
		typ      *json.UnmarshalTypeError
	)
	var class error
	switch {
	case errors.As(err, &authn), errors.As(err, &authz):
		class = ErrAuth
	case errors.As(err, &notFound):
		class = ErrNotFound
	case errors.As(err, &syntax), errors.As(err, &typ), strings.Contains(err.Error(), unmarshalErrorText):
		class = ErrResponseParse
	default:
		class = ErrTransport
	}
	return fmt.Errorf("%s: %w: %w", op, class, err)
}

// VerifyCredentials checks that creds are accepted by the Cloudflare API.
// Tokens must be active; key pairs must be able to read the account's user details.
func VerifyCredentials(ctx context.Context, creds Credentials, opts ...cloudflare.Option) error {
	api, err := newCloudflareAPI(creds, opts...)
	if err != nil {
		return err
	}
	switch creds.(type) {
	case TokenAuth:
		result, err := api.VerifyAPIToken(ctx)
		if err != nil {
			return classify("verify api token", err)
		}
		if result.Status != "active" {
			return fmt.Errorf("%w: expected api token status to be \"active\"; got \"%s\"", ErrAuth, result.Status)
		}
	case KeyAuth:
		if _, err := api.UserDetails(ctx); err != nil {
			return classify("get user details", err)
		}
	}
	return nil
}
