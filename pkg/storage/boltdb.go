package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rgeorge2/hank/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketDomains      = []byte("domains")
	bucketDomainGroups = []byte("domain_groups")
	bucketRingGroups   = []byte("ring_groups")
	bucketRings        = []byte("rings")
	bucketHosts        = []byte("hosts")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "hank.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketDomains,
			bucketDomainGroups,
			bucketRingGroups,
			bucketRings,
			bucketHosts,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// boltRingKey orders rings of a group by number under bucket iteration
func boltRingKey(ringGroup string, number int) []byte {
	return []byte(fmt.Sprintf("%s/%010d", ringGroup, number))
}

func put(tx *bolt.Tx, bucket, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Bucket(bucket).Put(key, data)
}

func get(tx *bolt.Tx, bucket, key []byte, v interface{}) (bool, error) {
	data := tx.Bucket(bucket).Get(key)
	if data == nil {
		return false, nil
	}
	return true, json.Unmarshal(data, v)
}

// create stores v under key unless the key exists
func (s *BoltStore) create(bucket, key []byte, what string, v interface{}) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucket).Get(key) != nil {
			return fmt.Errorf("%w: %s %s", ErrAlreadyExists, what, key)
		}
		return put(tx, bucket, key, v)
	})
}

// update stores v under key only if the key exists
func (s *BoltStore) update(bucket, key []byte, what string, v interface{}) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucket).Get(key) == nil {
			return fmt.Errorf("%w: %s %s", ErrNotFound, what, key)
		}
		return put(tx, bucket, key, v)
	})
}

func (s *BoltStore) delete(bucket, key []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete(key)
	})
}

// Domain operations
func (s *BoltStore) CreateDomain(domain *types.Domain) error {
	d := *domain
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	return s.create(bucketDomains, []byte(d.Name), "domain", &d)
}

func (s *BoltStore) GetDomain(name string) (*types.Domain, error) {
	var domain types.Domain
	err := s.db.View(func(tx *bolt.Tx) error {
		found, err := get(tx, bucketDomains, []byte(name), &domain)
		if err == nil && !found {
			return fmt.Errorf("%w: domain %s", ErrNotFound, name)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &domain, nil
}

func (s *BoltStore) ListDomains() ([]*types.Domain, error) {
	var domains []*types.Domain
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDomains).ForEach(func(k, v []byte) error {
			var domain types.Domain
			if err := json.Unmarshal(v, &domain); err != nil {
				return err
			}
			domains = append(domains, &domain)
			return nil
		})
	})
	return domains, err
}

func (s *BoltStore) DeleteDomain(name string) error {
	return s.delete(bucketDomains, []byte(name))
}

// Domain group operations
func (s *BoltStore) CreateDomainGroup(group *types.DomainGroup) error {
	return s.create(bucketDomainGroups, []byte(group.Name), "domain group", group)
}

func (s *BoltStore) GetDomainGroup(name string) (*types.DomainGroup, error) {
	var group types.DomainGroup
	err := s.db.View(func(tx *bolt.Tx) error {
		found, err := get(tx, bucketDomainGroups, []byte(name), &group)
		if err == nil && !found {
			return fmt.Errorf("%w: domain group %s", ErrNotFound, name)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if group.Versions == nil {
		group.Versions = make(map[string]int)
	}
	return &group, nil
}

func (s *BoltStore) ListDomainGroups() ([]*types.DomainGroup, error) {
	var groups []*types.DomainGroup
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDomainGroups).ForEach(func(k, v []byte) error {
			var group types.DomainGroup
			if err := json.Unmarshal(v, &group); err != nil {
				return err
			}
			groups = append(groups, &group)
			return nil
		})
	})
	return groups, err
}

func (s *BoltStore) UpdateDomainGroup(group *types.DomainGroup) error {
	g := cloneDomainGroup(group)
	g.UpdatedAt = time.Now()
	return s.update(bucketDomainGroups, []byte(g.Name), "domain group", g)
}

func (s *BoltStore) DeleteDomainGroup(name string) error {
	return s.delete(bucketDomainGroups, []byte(name))
}

// Ring group operations
func (s *BoltStore) CreateRingGroup(group *types.RingGroup) error {
	g := *group
	if g.Mode == "" {
		g.Mode = types.ConductorModeDowntime
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	return s.create(bucketRingGroups, []byte(g.Name), "ring group", &g)
}

func (s *BoltStore) GetRingGroup(name string) (*types.RingGroup, error) {
	var group types.RingGroup
	err := s.db.View(func(tx *bolt.Tx) error {
		found, err := get(tx, bucketRingGroups, []byte(name), &group)
		if err == nil && !found {
			return fmt.Errorf("%w: ring group %s", ErrNotFound, name)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (s *BoltStore) ListRingGroups() ([]*types.RingGroup, error) {
	var groups []*types.RingGroup
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRingGroups).ForEach(func(k, v []byte) error {
			var group types.RingGroup
			if err := json.Unmarshal(v, &group); err != nil {
				return err
			}
			groups = append(groups, &group)
			return nil
		})
	})
	return groups, err
}

func (s *BoltStore) UpdateRingGroup(group *types.RingGroup) error {
	g := *group
	g.UpdatedAt = time.Now()
	return s.update(bucketRingGroups, []byte(g.Name), "ring group", &g)
}

// DeleteRingGroup removes the group with its rings and hosts
func (s *BoltStore) DeleteRingGroup(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRingGroups).Delete([]byte(name)); err != nil {
			return err
		}
		if err := deletePrefix(tx.Bucket(bucketRings), []byte(name+"/")); err != nil {
			return err
		}
		return deleteHostsWhere(tx, func(h *types.Host) bool { return h.RingGroup == name })
	})
}

// Ring operations
func (s *BoltStore) CreateRing(ring *types.Ring) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketRingGroups).Get([]byte(ring.RingGroup)) == nil {
			return fmt.Errorf("%w: ring group %s", ErrNotFound, ring.RingGroup)
		}
		key := boltRingKey(ring.RingGroup, ring.Number)
		if tx.Bucket(bucketRings).Get(key) != nil {
			return fmt.Errorf("%w: ring %s/%d", ErrAlreadyExists, ring.RingGroup, ring.Number)
		}
		return put(tx, bucketRings, key, ring)
	})
}

func (s *BoltStore) ListRings(ringGroup string) ([]*types.Ring, error) {
	var rings []*types.Ring
	prefix := []byte(ringGroup + "/")
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRings).Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var ring types.Ring
			if err := json.Unmarshal(v, &ring); err != nil {
				return err
			}
			rings = append(rings, &ring)
		}
		return nil
	})
	sortRings(rings)
	return rings, err
}

// DeleteRing removes the ring and its hosts
func (s *BoltStore) DeleteRing(ringGroup string, number int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRings).Delete(boltRingKey(ringGroup, number)); err != nil {
			return err
		}
		return deleteHostsWhere(tx, func(h *types.Host) bool {
			return h.RingGroup == ringGroup && h.Ring == number
		})
	})
}

// Host operations
func (s *BoltStore) CreateHost(host *types.Host) error {
	h := host.Clone()
	prepareNewHost(h)
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketRings).Get(boltRingKey(h.RingGroup, h.Ring)) == nil {
			return fmt.Errorf("%w: ring %s/%d", ErrNotFound, h.RingGroup, h.Ring)
		}
		if tx.Bucket(bucketHosts).Get([]byte(h.Address)) != nil {
			return fmt.Errorf("%w: host %s", ErrAlreadyExists, h.Address)
		}
		return put(tx, bucketHosts, []byte(h.Address), h)
	})
}

func (s *BoltStore) GetHost(address string) (*types.Host, error) {
	var host types.Host
	err := s.db.View(func(tx *bolt.Tx) error {
		found, err := get(tx, bucketHosts, []byte(address), &host)
		if err == nil && !found {
			return fmt.Errorf("%w: host %s", ErrNotFound, address)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &host, nil
}

func (s *BoltStore) ListHosts() ([]*types.Host, error) {
	return s.listHostsWhere(func(*types.Host) bool { return true })
}

func (s *BoltStore) ListHostsByRing(ringGroup string, ring int) ([]*types.Host, error) {
	return s.listHostsWhere(func(h *types.Host) bool {
		return h.RingGroup == ringGroup && h.Ring == ring
	})
}

func (s *BoltStore) listHostsWhere(match func(*types.Host) bool) ([]*types.Host, error) {
	var hosts []*types.Host
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHosts).ForEach(func(k, v []byte) error {
			var host types.Host
			if err := json.Unmarshal(v, &host); err != nil {
				return err
			}
			if match(&host) {
				hosts = append(hosts, &host)
			}
			return nil
		})
	})
	types.SortHosts(hosts)
	return hosts, err
}

func (s *BoltStore) DeleteHost(address string) error {
	return s.delete(bucketHosts, []byte(address))
}

// updateHost loads, mutates and stores a host inside one write transaction
func (s *BoltStore) updateHost(address string, fn func(h *types.Host) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var host types.Host
		found, err := get(tx, bucketHosts, []byte(address), &host)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: host %s", ErrNotFound, address)
		}
		if err := fn(&host); err != nil {
			return err
		}
		host.UpdatedAt = time.Now()
		return put(tx, bucketHosts, []byte(address), &host)
	})
}

func (s *BoltStore) EnqueueCommand(address string, cmd types.HostCommand) error {
	return s.updateHost(address, func(h *types.Host) error {
		return enqueueCommand(h, cmd)
	})
}

func (s *BoltStore) SetHostDomains(address string, domains []types.HostDomain) error {
	return s.updateHost(address, func(h *types.Host) error {
		setHostDomains(h, domains)
		return nil
	})
}

func (s *BoltStore) SetHostState(address string, state types.HostState) error {
	return s.updateHost(address, func(h *types.Host) error {
		return setHostState(h, state)
	})
}

func (s *BoltStore) NextCommand(address string) (*types.HostCommand, error) {
	var cmd *types.HostCommand
	err := s.updateHost(address, func(h *types.Host) error {
		cmd = nextCommand(h)
		return nil
	})
	return cmd, err
}

func (s *BoltStore) CompleteCommand(address string) error {
	return s.updateHost(address, func(h *types.Host) error {
		completeCommand(h)
		return nil
	})
}

func (s *BoltStore) ClearCommandQueue(address string) error {
	return s.updateHost(address, func(h *types.Host) error {
		clearCommandQueue(h)
		return nil
	})
}

func (s *BoltStore) SetPartitionVersion(address, domain string, partition, version int) error {
	return s.updateHost(address, func(h *types.Host) error {
		return setPartitionVersion(h, domain, partition, version)
	})
}

func deletePrefix(b *bolt.Bucket, prefix []byte) error {
	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func deleteHostsWhere(tx *bolt.Tx, match func(*types.Host) bool) error {
	b := tx.Bucket(bucketHosts)
	var keys [][]byte
	err := b.ForEach(func(k, v []byte) error {
		var host types.Host
		if err := json.Unmarshal(v, &host); err != nil {
			return err
		}
		if match(&host) {
			keys = append(keys, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
