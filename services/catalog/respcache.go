package catalog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const respPrefix = "r:"

// ResponseCache persists upstream GET bodies on disk with a per-entry expiry.
// Values are an 8-byte big-endian expiry (unix nanos) followed by the body.
type ResponseCache struct {
	db  *leveldb.DB
	now func() time.Time
}

// OpenResponseCache opens (or creates) the cache at dir and drops entries that
// expired while the process was down.
func OpenResponseCache(dir string) (*ResponseCache, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("open catalog cache %s: %w", dir, err)
	}
	c := &ResponseCache{db: db, now: time.Now}
	if _, err := c.Sweep(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Get returns a live body for key.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	b, err := c.db.Get([]byte(respPrefix+key), nil)
	if err != nil || len(b) < 8 {
		return nil, false
	}
	expires := int64(binary.BigEndian.Uint64(b[:8]))
	if c.now().UnixNano() >= expires {
		_ = c.db.Delete([]byte(respPrefix+key), nil)
		return nil, false
	}
	return b[8:], true
}

// Set stores body under key for ttl.
func (c *ResponseCache) Set(key string, body []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}
	v := make([]byte, 8+len(body))
	binary.BigEndian.PutUint64(v[:8], uint64(c.now().Add(ttl).UnixNano()))
	copy(v[8:], body)
	return c.db.Put([]byte(respPrefix+key), v, nil)
}

// Sweep deletes expired entries and reports how many were removed.
func (c *ResponseCache) Sweep() (int, error) {
	it := c.db.NewIterator(util.BytesPrefix([]byte(respPrefix)), nil)
	defer it.Release()

	now := c.now().UnixNano()
	batch := new(leveldb.Batch)
	for it.Next() {
		v := it.Value()
		if len(v) < 8 || int64(binary.BigEndian.Uint64(v[:8])) <= now {
			batch.Delete(append([]byte(nil), it.Key()...))
		}
	}
	if err := it.Error(); err != nil {
		return 0, fmt.Errorf("sweep catalog cache: %w", err)
	}
	if batch.Len() == 0 {
		return 0, nil
	}
	if err := c.db.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("sweep catalog cache: %w", err)
	}
	return batch.Len(), nil
}

func (c *ResponseCache) Close() error {
	return c.db.Close()
}
