package kvstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/CrafterTA/UnityWallet-sub002/types"
)

const (
	durableStoreDir = "wallet"

	walletKey      = "wallet"
	keystoreKey    = "keystore"
	preferencesKey = "preferences"
)

type durableStore struct {
	db      *badgerhold.Store
	datadir string
	lock    *sync.Mutex
}

func NewDurableStore(dir string, logger badger.Logger) (types.DurableStore, error) {
	datadir := dir
	if dir != "" {
		dir = filepath.Join(dir, durableStoreDir)
	}
	badgerDb, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open durable store: %s", err)
	}
	return &durableStore{
		db:      badgerDb,
		datadir: datadir,
		lock:    &sync.Mutex{},
	}, nil
}

func (s *durableStore) GetType() string {
	return types.KVStore
}

func (s *durableStore) GetDatadir() string {
	return s.datadir
}

func (s *durableStore) AddWallet(_ context.Context, data types.WalletData) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.db.Upsert(walletKey, &data)
}

func (s *durableStore) GetWallet(_ context.Context) (*types.WalletData, error) {
	var data types.WalletData
	if err := s.db.Get(walletKey, &data); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &data, nil
}

func (s *durableStore) AddKeystore(_ context.Context, record types.KeystoreRecord) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.db.Upsert(keystoreKey, &record)
}

func (s *durableStore) GetKeystore(_ context.Context) (*types.KeystoreRecord, error) {
	var record types.KeystoreRecord
	if err := s.db.Get(keystoreKey, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (s *durableStore) AddPreferences(_ context.Context, prefs types.Preferences) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.db.Upsert(preferencesKey, &prefs)
}

func (s *durableStore) GetPreferences(_ context.Context) (*types.Preferences, error) {
	var prefs types.Preferences
	if err := s.db.Get(preferencesKey, &prefs); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prefs, nil
}

// CleanData wipes the wallet metadata and the keystore. Preferences are the
// one record exempt from the logout wipe.
func (s *durableStore) CleanData(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.db.Delete(walletKey, &types.WalletData{}); err != nil {
		if !errors.Is(err, badgerhold.ErrNotFound) {
			return err
		}
	}
	if err := s.db.Delete(keystoreKey, &types.KeystoreRecord{}); err != nil {
		if !errors.Is(err, badgerhold.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *durableStore) Close() {
	// nolint:errcheck
	s.db.Close()
}
