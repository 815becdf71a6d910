// Package fakestore provides an in-memory ddns.RecordStore for testing.
package fakestore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	ddns "github.com/Travis-Britz/cloudflare-ddns"
)

// Op names a RecordStore method.
type Op string

const (
	FindZone     Op = "FindZone"
	FindRecord   Op = "FindRecord"
	GetRecord    Op = "GetRecord"
	CreateRecord Op = "CreateRecord"
	UpdateRecord Op = "UpdateRecord"
)

// Call is a snapshot of a single RecordStore call, kept for test assertions.
type Call struct {
	Op Op
	// Name is the zone name for FindZone and the record name otherwise.
	Name string
	// Spec is set for CreateRecord and UpdateRecord.
	Spec ddns.RecordSpec
}

type failure struct {
	op   Op
	name string
	err  error
}

// Store is an in-memory DNS provider holding a single zone.
type Store struct {
	mu       sync.Mutex
	zone     string
	zoneID   string
	records  map[string]ddns.RemoteRecord // keyed by ID
	nextID   int
	failures []failure
	history  []Call
	logger   *slog.Logger
}

// New returns a Store serving zone, pre-loaded with records.
// Records without an ID are assigned one.
func New(zone string, records ...ddns.RemoteRecord) *Store {
	s := &Store{
		zone:    zone,
		zoneID:  "zone-" + zone,
		records: make(map[string]ddns.RemoteRecord),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, r := range records {
		s.Put(r)
	}
	return s
}

// SetLogger receives the client logger; every call is logged at debug level.
func (s *Store) SetLogger(l *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = l
}

// ZoneID returns the identifier FindZone reports.
func (s *Store) ZoneID() string {
	return s.zoneID
}

// Put stores r, replacing any record with the same ID, and returns its ID.
func (s *Store) Put(r ddns.RemoteRecord) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = s.newID()
	}
	s.records[r.ID] = r
	return r.ID
}

// Fail makes every later call of op return err.
// A non-empty name limits the failure to calls about that zone or record.
func (s *Store) Fail(op Op, name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{op: op, name: name, err: err})
}

// Records returns all stored records, ordered by name and type.
func (s *Store) Records() []ddns.RemoteRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ddns.RemoteRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Lookup returns the first stored record with name and kind.
func (s *Store) Lookup(name string, kind ddns.Kind) (ddns.RemoteRecord, bool) {
	for _, r := range s.Records() {
		if strings.EqualFold(r.Name, name) && r.Kind == kind {
			return r, true
		}
	}
	return ddns.RemoteRecord{}, false
}

// History returns all calls made so far, oldest first.
func (s *Store) History() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.history))
	copy(out, s.history)
	return out
}

// Count returns how many times op was called.
func (s *Store) Count(op Op) (n int) {
	for _, c := range s.History() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (s *Store) FindZone(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(Call{Op: FindZone, Name: name}); err != nil {
		return "", err
	}
	if !strings.EqualFold(name, s.zone) {
		return "", fmt.Errorf("zone %q: %w", name, ddns.ErrNotFound)
	}
	return s.zoneID, nil
}

func (s *Store) FindRecord(_ context.Context, zoneID, name string, kind ddns.Kind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(Call{Op: FindRecord, Name: name}); err != nil {
		return "", err
	}
	if err := s.checkZone(zoneID); err != nil {
		return "", err
	}
	var ids []string
	for id, r := range s.records {
		if strings.EqualFold(r.Name, name) && r.Kind == kind {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("%s record %q: %w", kind, name, ddns.ErrNotFound)
	}
	sort.Strings(ids)
	return ids[0], nil
}

func (s *Store) GetRecord(_ context.Context, zoneID, recordID string) (ddns.RemoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(Call{Op: GetRecord, Name: s.records[recordID].Name}); err != nil {
		return ddns.RemoteRecord{}, err
	}
	if err := s.checkZone(zoneID); err != nil {
		return ddns.RemoteRecord{}, err
	}
	r, ok := s.records[recordID]
	if !ok {
		return ddns.RemoteRecord{}, fmt.Errorf("record %s: %w", recordID, ddns.ErrNotFound)
	}
	return r, nil
}

func (s *Store) CreateRecord(_ context.Context, zoneID string, spec ddns.RecordSpec) (ddns.RemoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(Call{Op: CreateRecord, Name: spec.Name, Spec: spec}); err != nil {
		return ddns.RemoteRecord{}, err
	}
	if err := s.checkZone(zoneID); err != nil {
		return ddns.RemoteRecord{}, err
	}
	r := remote(s.newID(), spec)
	s.records[r.ID] = r
	return r, nil
}

func (s *Store) UpdateRecord(_ context.Context, zoneID, recordID string, spec ddns.RecordSpec) (ddns.RemoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(Call{Op: UpdateRecord, Name: spec.Name, Spec: spec}); err != nil {
		return ddns.RemoteRecord{}, err
	}
	if err := s.checkZone(zoneID); err != nil {
		return ddns.RemoteRecord{}, err
	}
	if _, ok := s.records[recordID]; !ok {
		return ddns.RemoteRecord{}, fmt.Errorf("record %s: %w", recordID, ddns.ErrNotFound)
	}
	r := remote(recordID, spec)
	s.records[recordID] = r
	return r, nil
}

// call records c and returns the injected failure for it, if any. s.mu must be held.
func (s *Store) call(c Call) error {
	s.history = append(s.history, c)
	s.logger.Debug("record store call", "op", c.Op, "name", c.Name)
	for _, f := range s.failures {
		if f.op == c.Op && (f.name == "" || strings.EqualFold(f.name, c.Name)) {
			return f.err
		}
	}
	return nil
}

func (s *Store) checkZone(zoneID string) error {
	if zoneID != s.zoneID {
		return fmt.Errorf("zone id %q: %w", zoneID, ddns.ErrNotFound)
	}
	return nil
}

func (s *Store) newID() string {
	for {
		s.nextID++
		id := "rec-" + strconv.Itoa(s.nextID)
		if _, taken := s.records[id]; !taken {
			return id
		}
	}
}

func remote(id string, spec ddns.RecordSpec) ddns.RemoteRecord {
	return ddns.RemoteRecord{
		ID:      id,
		Name:    spec.Name,
		Kind:    spec.Kind,
		Content: spec.Content,
		TTL:     spec.TTL,
		Proxied: spec.Proxied,
	}
}
