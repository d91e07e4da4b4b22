package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/engine"
)

// Storage keys
const (
	keyParams      = "params"
	keyTablePrefix = "tt/"
	keyMetaSuffix  = "/meta"
)

// ErrNotFound is returned when no snapshot exists under the requested name.
var ErrNotFound = errors.New("storage: not found")

// TableMeta describes a saved transposition table snapshot.
type TableMeta struct {
	Entries  int       `json:"entries"`
	HashFull int       `json:"hash_full"`
	Bytes    int       `json:"bytes"`
	Chunks   int       `json:"chunks"`
	SavedAt  time.Time `json:"saved_at"`
}

// Store wraps BadgerDB for transposition snapshots and engine parameters.
type Store struct {
	db  *badger.DB
	log zerolog.Logger
}

// Open opens (or creates) a store in dir.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	return open(badger.DefaultOptions(dir), log)
}

// OpenDefault opens the store in the platform data directory.
func OpenDefault(log zerolog.Logger) (*Store, error) {
	dir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return Open(dir, log)
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory(log zerolog.Logger) (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), log)
}

func open(opts badger.Options, log zerolog.Logger) (*Store, error) {
	log = log.With().Str("component", "storage").Logger()
	db, err := badger.Open(opts.WithLogger(badgerLogger{log}))
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Dir, err)
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveParams saves the engine parameters.
func (s *Store) SaveParams(p engine.Params) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyParams), data)
	})
}

// LoadParams loads engine parameters, returns defaults if none were saved.
// Fields missing from the stored record keep their default value.
func (s *Store) LoadParams() (engine.Params, error) {
	p := engine.DefaultParams()
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyParams))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // Use defaults
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	return p, err
}

// ImportParams reads a JSON parameter set from r, fills fields it omits with
// defaults, and saves the result as the stored set.
func (s *Store) ImportParams(r io.Reader) (engine.Params, error) {
	p := engine.DefaultParams()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return engine.Params{}, fmt.Errorf("decode params: %w", err)
	}
	if err := s.SaveParams(p); err != nil {
		return engine.Params{}, err
	}
	s.log.Info().Msg("params-imported")
	return p, nil
}

// Snapshots are split into chunks so no single value exceeds badger's
// value threshold or transaction size.
const chunkSize = 512 << 10

func tablePrefix(name string) []byte {
	return []byte(keyTablePrefix + name + "/")
}

func chunkKey(name string, i int) []byte {
	return []byte(fmt.Sprintf("%s%s/chunk/%06d", keyTablePrefix, name, i))
}

func metaKey(name string) []byte {
	return []byte(keyTablePrefix + name + keyMetaSuffix)
}

// SaveTable stores a snapshot of tt under name, replacing any earlier one.
func (s *Store) SaveTable(name string, tt *engine.TranspositionTable) error {
	var buf bytes.Buffer
	if err := tt.SaveTo(&buf); err != nil {
		return err
	}
	data := buf.Bytes()
	meta, err := json.Marshal(TableMeta{
		Entries:  tt.Len(),
		HashFull: tt.HashFull(),
		Bytes:    len(data),
		Chunks:   (len(data) + chunkSize - 1) / chunkSize,
		SavedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := s.DeleteTable(name); err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for i := 0; len(data) > 0; i++ {
		n := min(chunkSize, len(data))
		if err := wb.Set(chunkKey(name, i), data[:n]); err != nil {
			return fmt.Errorf("save table %q: %w", name, err)
		}
		data = data[n:]
	}
	if err := wb.Set(metaKey(name), meta); err != nil {
		return fmt.Errorf("save table %q: %w", name, err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("save table %q: %w", name, err)
	}
	s.log.Debug().Str("table", name).Int("bytes", buf.Len()).Msg("table-saved")
	return nil
}

// LoadTable replaces the contents of tt with the snapshot saved under name.
// A missing snapshot returns ErrNotFound; one that does not fit tt returns
// an error wrapping engine.ErrIncompatibleTable. Either way tt is left empty.
func (s *Store) LoadTable(name string, tt *engine.TranspositionTable) error {
	meta, err := s.TableInfo(name)
	if err == nil {
		var buf bytes.Buffer
		buf.Grow(meta.Bytes)
		err = s.db.View(func(txn *badger.Txn) error {
			for i := 0; i < meta.Chunks; i++ {
				item, err := txn.Get(chunkKey(name, i))
				if err != nil {
					return fmt.Errorf("chunk %d: %w", i, err)
				}
				if err := item.Value(func(val []byte) error {
					_, err := buf.Write(val)
					return err
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			err = tt.LoadFrom(&buf)
		}
	}
	if err != nil {
		tt.Clear()
		return fmt.Errorf("load table %q: %w", name, err)
	}
	s.log.Debug().Str("table", name).Int("hashfull", tt.HashFull()).Msg("table-loaded")
	return nil
}

// TableInfo returns the metadata of the snapshot saved under name.
func (s *Store) TableInfo(name string) (TableMeta, error) {
	var meta TableMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	return meta, err
}

// DeleteTable removes the snapshot saved under name, if any.
func (s *Store) DeleteTable(name string) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = tablePrefix(name)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil || len(keys) == 0 {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// badgerLogger routes badger's internal logging through zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Trace().Msgf(format, args...)
}
