package files

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/google/uuid"
)

// Key layout:
//
//	f/<id>                                  -> JSON models.File
//	c/<owner>\x00<parent>\x00<name>\x00<id> -> empty (children index)
//
// The children index sorts by name bytes within one (owner, parent) pair,
// which gives ListByParent its order for free.
const (
	filePrefix  = "f/"
	childPrefix = "c/"
	sep         = "\x00"
)

func keyFile(id string) []byte {
	return []byte(filePrefix + id)
}

func keyChildPrefix(owner, parent string) []byte {
	return []byte(childPrefix + owner + sep + parent + sep)
}

func keyChild(f *models.File) []byte {
	return append(keyChildPrefix(f.UserID, f.ParentID), []byte(f.Name+sep+f.ID)...)
}

// BadgerRepository implements Repository on an embedded BadgerDB, for
// single-node deployments without PostgreSQL.
type BadgerRepository struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a store in dir. An empty dir opens an
// in-memory store.
func OpenBadger(dir string) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return &BadgerRepository{db: db}, nil
}

func (r *BadgerRepository) Close() error {
	return r.db.Close()
}

func (r *BadgerRepository) Insert(ctx context.Context, f *models.File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if strings.IndexByte(f.Name, 0) >= 0 {
		return "", common.ErrInvalidName
	}

	rec := *f
	rec.ID = uuid.NewString()

	val, err := json.Marshal(&rec)
	if err != nil {
		return "", fmt.Errorf("encode file: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(keyFile(rec.ID), val); err != nil {
			return err
		}
		return txn.Set(keyChild(&rec), nil)
	})
	if err != nil {
		return "", fmt.Errorf("insert file: %w", err)
	}
	return rec.ID, nil
}

func getFile(txn *badger.Txn, id string) (*models.File, error) {
	item, err := txn.Get(keyFile(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var f models.File
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &f)
	}); err != nil {
		return nil, fmt.Errorf("decode file %s: %w", id, err)
	}
	return &f, nil
}

func (r *BadgerRepository) GetOwned(ctx context.Context, id, userID string) (*models.File, error) {
	return r.get(ctx, id, func(f *models.File) bool { return f.UserID == userID })
}

func (r *BadgerRepository) GetVisible(ctx context.Context, id, userID string) (*models.File, error) {
	return r.get(ctx, id, func(f *models.File) bool {
		return f.IsPublic || (userID != "" && f.UserID == userID)
	})
}

func (r *BadgerRepository) get(ctx context.Context, id string, allowed func(*models.File) bool) (*models.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out *models.File
	err := r.db.View(func(txn *badger.Txn) error {
		f, err := getFile(txn, id)
		if err != nil {
			return err
		}
		if !allowed(f) {
			return common.ErrNotFound
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BadgerRepository) ListByParent(ctx context.Context, userID, parentID string, offset, limit int) ([]*models.File, error) {
	result := make([]*models.File, 0, limit)

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyChildPrefix(userID, parentID)

		it := txn.NewIterator(opts)
		defer it.Close()

		skipped := 0
		for it.Rewind(); it.Valid() && len(result) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if skipped < offset {
				skipped++
				continue
			}

			key := it.Item().Key()
			i := bytes.LastIndex(key, []byte(sep))
			if i < 0 {
				continue
			}

			f, err := getFile(txn, string(key[i+1:]))
			if err != nil {
				return err
			}
			result = append(result, f)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return result, nil
}

// SetPublic retries on transaction conflicts; the last committed writer wins.
func (r *BadgerRepository) SetPublic(ctx context.Context, id, userID string, public bool) (*models.File, error) {
	var out *models.File

	update := func(txn *badger.Txn) error {
		f, err := getFile(txn, id)
		if err != nil {
			return err
		}
		if f.UserID != userID {
			return common.ErrNotFound
		}

		f.IsPublic = public
		val, err := json.Marshal(f)
		if err != nil {
			return err
		}
		if err := txn.Set(keyFile(id), val); err != nil {
			return err
		}
		out = f
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := r.db.Update(update)
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
}

func (r *BadgerRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(filePrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return ctx.Err()
	})
	if err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return n, nil
}

// Alive reports whether the store accepts reads.
func (r *BadgerRepository) Alive() bool {
	return !r.db.IsClosed()
}
