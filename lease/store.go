package lease

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Lease records one granted address lease. Addresses are kept in their
// wire form ("address/prefix") so the stored document reads the same as
// the protocol text that announced it.
type Lease struct {
	IP4      string `json:"ip4,omitempty"`
	IP6      string `json:"ip6,omitempty"`
	Start    uint32 `json:"start"`
	Duration uint32 `json:"duration"`
}

// Expired reports whether the lease has run out at the given unix time.
func (l Lease) Expired(now uint32) bool {
	return now >= l.Start+l.Duration
}

// Store keeps leases in a single JSON document keyed by peer address.
// The document form makes Backup/Restore trivial: the raw bytes are the
// whole state.
type Store struct {
	mu  sync.Mutex
	doc []byte
}

func NewStore() *Store {
	return &Store{doc: []byte(`{}`)}
}

func (s *Store) Put(ctx context.Context, peer string, l Lease) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc, err = sjson.SetBytes(s.doc, leasePath(peer), l)
	return err
}

func (s *Store) Get(ctx context.Context, peer string) (Lease, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := gjson.GetBytes(s.doc, leasePath(peer))
	if !result.Exists() {
		return Lease{}, false
	}

	var l Lease
	if err := json.Unmarshal([]byte(result.Raw), &l); err != nil {
		return Lease{}, false
	}

	return l, true
}

func (s *Store) Delete(ctx context.Context, peer string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc, err = sjson.DeleteBytes(s.doc, leasePath(peer))
	return err
}

// Backup returns the raw JSON document holding every lease.
func (s *Store) Backup() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.doc) == 0 {
		return []byte(`{}`), nil
	}

	return s.doc, nil
}

// Restore replaces the document wholesale.
func (s *Store) Restore(doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(doc) == 0 {
		doc = []byte(`{}`)
	}

	s.doc = doc
	return nil
}

// leasePath builds the gjson/sjson path for a peer, escaping the path
// metacharacters that show up in printed addresses.
func leasePath(peer string) string {
	escaped := strings.NewReplacer(
		`\`, `\\`,
		`.`, `\.`,
		`*`, `\*`,
		`?`, `\?`,
		`|`, `\|`,
		`#`, `\#`,
		`@`, `\@`,
	).Replace(peer)

	return "peers." + escaped
}
