package skumap

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"
)

// ReloadFile replaces the whole table with the rows of path. The current
// table is kept when the file cannot be read or parsed. Rows that did not
// change keep their timestamps.
func (m *Mapper) ReloadFile(path string) (int, error) {
	fresh := New(WithClock(m.now))
	fresh.log = m.log
	n, err := fresh.LoadFile(path)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, next := range fresh.details {
		prev, ok := m.details[key]
		if ok && prev.MasterSKU == next.MasterSKU && prev.Details == next.Details {
			next.CreatedAt, next.UpdatedAt = prev.CreatedAt, prev.UpdatedAt
		} else if ok {
			next.CreatedAt = prev.CreatedAt
		}
	}
	m.forward, m.reverse, m.details, m.keys = fresh.forward, fresh.reverse, fresh.details, fresh.keys
	return n, nil
}

// Watch polls path every interval and reloads the table when the file's
// modification time or size changes. Reload failures are logged and the
// previous table stays in place. It returns nil when ctx is done.
func (m *Mapper) Watch(ctx context.Context, path string, every time.Duration) error {
	if every <= 0 {
		return nil
	}
	log := m.log.WithField("file", path)
	last, _ := stat(path)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		cur, err := stat(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				log.WithField("error", err.Error()).Warn("stat SKU mapping file failed")
			}
			continue
		}
		if cur.same(last) {
			continue
		}
		last = cur
		if _, err := m.ReloadFile(path); err != nil {
			log.WithField("error", err.Error()).Error("reload SKU mappings failed, keeping current table")
		}
	}
}

type fileVersion struct {
	mod  time.Time
	size int64
}

func (v fileVersion) same(o fileVersion) bool {
	return v.size == o.size && v.mod.Equal(o.mod)
}

func stat(path string) (fileVersion, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return fileVersion{}, err
	}
	return fileVersion{mod: fi.ModTime(), size: fi.Size()}, nil
}
