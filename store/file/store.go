package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"

	"github.com/CrafterTA/UnityWallet-sub002/types"
)

const storeFileName = "state.json"

type durableStore struct {
	filePath string
	datadir  string
	lock     *sync.Mutex
}

// NewDurableStore returns a durable store backed by a single JSON file under
// dir. Suited to browsers of the CLI kind: no daemon, human-inspectable
// state.
func NewDurableStore(dir string) (types.DurableStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}
	filePath := filepath.Join(dir, storeFileName)

	store := &durableStore{
		filePath: filePath,
		datadir:  dir,
		lock:     &sync.Mutex{},
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := store.write(storeData{}); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (s *durableStore) GetType() string {
	return types.FileStore
}

func (s *durableStore) GetDatadir() string {
	return s.datadir
}

func (s *durableStore) AddWallet(_ context.Context, data types.WalletData) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	current, err := s.read()
	if err != nil {
		return err
	}
	current.setWallet(data)
	return s.write(*current)
}

func (s *durableStore) GetWallet(_ context.Context) (*types.WalletData, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	current, err := s.read()
	if err != nil {
		return nil, err
	}
	return current.wallet()
}

func (s *durableStore) AddKeystore(_ context.Context, record types.KeystoreRecord) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	current, err := s.read()
	if err != nil {
		return err
	}
	buf, err := json.Marshal(record)
	if err != nil {
		return err
	}
	current.Keystore = string(buf)
	return s.write(*current)
}

func (s *durableStore) GetKeystore(_ context.Context) (*types.KeystoreRecord, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	current, err := s.read()
	if err != nil {
		return nil, err
	}
	if current.Keystore == "" {
		return nil, nil
	}
	var record types.KeystoreRecord
	if err := json.Unmarshal([]byte(current.Keystore), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *durableStore) AddPreferences(_ context.Context, prefs types.Preferences) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	current, err := s.read()
	if err != nil {
		return err
	}
	current.Theme = prefs.Theme
	return s.write(*current)
}

func (s *durableStore) GetPreferences(_ context.Context) (*types.Preferences, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	current, err := s.read()
	if err != nil {
		return nil, err
	}
	if current.Theme == "" {
		return nil, nil
	}
	return &types.Preferences{Theme: current.Theme}, nil
}

func (s *durableStore) CleanData(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	current, err := s.read()
	if err != nil {
		return err
	}
	// Preferences survive the wipe.
	return s.write(storeData{Theme: current.Theme})
}

func (s *durableStore) Close() {
	log.Debugf("closed file store at %s", s.filePath)
}

func (s *durableStore) read() (*storeData, error) {
	buf, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %s", err)
	}
	raw := map[string]any{}
	if err := json.Unmarshal(buf, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse store file: %s", err)
	}
	data := &storeData{}
	if err := mapstructure.Decode(raw, data); err != nil {
		return nil, fmt.Errorf("failed to decode store data: %s", err)
	}
	return data, nil
}

// write replaces the store file atomically: a crash mid-write must never
// leave a half-serialized keystore behind.
func (s *durableStore) write(data storeData) error {
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.datadir, storeFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %s", err)
	}
	if _, err := tmp.Write(buf); err != nil {
		// nolint:errcheck
		tmp.Close()
		// nolint:errcheck
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write store file: %s", err)
	}
	if err := tmp.Close(); err != nil {
		// nolint:errcheck
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		// nolint:errcheck
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.filePath)
}
