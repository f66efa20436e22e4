package melviewhkb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/brutella/hap/log"
	bolt "go.etcd.io/bbolt"

	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge/melview"
)

const cachefilename = "startupcache.db"

var (
	bucketUnits  = []byte("units")
	bucketStates = []byte("states")

	// ErrNotFound is returned for units the cache has never seen
	ErrNotFound = errors.New("not found in startup cache")
)

// CachedUnit is what the bridge needs to come up without the cloud
type CachedUnit struct {
	Unit  melview.Unit
	State *melview.UnitState
}

// Cache keeps discovered units and their last state across restarts
type Cache struct {
	db *bolt.DB

	mu   sync.Mutex
	last map[string][]byte // unitid -> state as last written
}

// OpenCache opens or creates the cache in dir
func OpenCache(dir string) (*Cache, error) {
	db, err := bolt.Open(filepath.Join(dir, cachefilename), 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open startup cache: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketUnits, bucketStates} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Cache{db: db, last: make(map[string][]byte)}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// SaveUnit stores the unit record and its current state
func (c *Cache) SaveUnit(u *Unit) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(u.Unit)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketUnits).Put([]byte(u.UnitID), data); err != nil {
			return err
		}
		state, err := json.Marshal(u.State())
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketStates).Put([]byte(u.UnitID), state); err != nil {
			return err
		}
		c.remember(u.UnitID, state)
		return nil
	})
}

func (c *Cache) remember(unitID string, state []byte) {
	c.mu.Lock()
	c.last[unitID] = state
	c.mu.Unlock()
}

// saveState is a state subscriber. Polls mostly repeat the stored state, so
// only changes reach the disk; failures only get logged.
func (c *Cache) saveState(unitID string, s *melview.UnitState) bool {
	data, err := json.Marshal(s)
	if err != nil {
		log.Info.Printf("unable to encode state for %s: %s", unitID, err.Error())
		return false
	}

	c.mu.Lock()
	same := bytes.Equal(c.last[unitID], data)
	c.mu.Unlock()
	if same {
		return false
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStates).Put([]byte(unitID), data)
	})
	if err != nil {
		log.Info.Printf("unable to update startup cache for %s: %s", unitID, err.Error())
		return false
	}
	c.remember(unitID, data)
	return true
}

// GetUnit loads one cached unit
func (c *Cache) GetUnit(unitID string) (*CachedUnit, error) {
	var cu CachedUnit
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketUnits).Get([]byte(unitID))
		if data == nil {
			return fmt.Errorf("unit %s: %w", unitID, ErrNotFound)
		}
		if err := json.Unmarshal(data, &cu.Unit); err != nil {
			return err
		}
		cu.State = getState(tx, unitID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cu, nil
}

// LoadUnits returns every cached unit
func (c *Cache) LoadUnits() ([]*CachedUnit, error) {
	var units []*CachedUnit
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUnits).ForEach(func(k, v []byte) error {
			cu := CachedUnit{}
			if err := json.Unmarshal(v, &cu.Unit); err != nil {
				return err
			}
			cu.State = getState(tx, string(k))
			units = append(units, &cu)
			return nil
		})
	})
	return units, err
}

func getState(tx *bolt.Tx, unitID string) *melview.UnitState {
	data := tx.Bucket(bucketStates).Get([]byte(unitID))
	if data == nil {
		return nil
	}
	var s melview.UnitState
	if err := json.Unmarshal(data, &s); err != nil {
		log.Info.Printf("startup cache: bad state for %s: %s", unitID, err.Error())
		return nil
	}
	return &s
}
