package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/CrafterTA/UnityWallet-sub002/types"
)

const (
	envelopeKey = "envelope"
	sessionKey  = "session"

	scratchKeyPrefix = "scratch/"
)

// ephemeralStore is a badger-backed ephemeral store. The badger instance runs
// strictly in memory: nothing here may outlive the process.
type ephemeralStore struct {
	db   *badgerhold.Store
	lock *sync.Mutex
}

func NewEphemeralStore(logger badger.Logger) (types.EphemeralStore, error) {
	badgerDb, err := createDB("", logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ephemeral store: %s", err)
	}
	return &ephemeralStore{
		db:   badgerDb,
		lock: &sync.Mutex{},
	}, nil
}

func (s *ephemeralStore) GetType() string {
	return types.KVStore
}

func (s *ephemeralStore) AddEnvelope(
	_ context.Context, envelope types.EncryptedSecretEnvelope,
) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.db.Upsert(envelopeKey, &envelope)
}

func (s *ephemeralStore) GetEnvelope(_ context.Context) (*types.EncryptedSecretEnvelope, error) {
	var envelope types.EncryptedSecretEnvelope
	if err := s.db.Get(envelopeKey, &envelope); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &envelope, nil
}

func (s *ephemeralStore) AddSessionInfo(_ context.Context, info types.SessionInfo) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.db.Upsert(sessionKey, &info)
}

func (s *ephemeralStore) GetSessionInfo(_ context.Context) (*types.SessionInfo, error) {
	var info types.SessionInfo
	if err := s.db.Get(sessionKey, &info); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &info, nil
}

func (s *ephemeralStore) AddScratch(
	_ context.Context, key string, envelope types.ScratchEnvelope,
) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.db.Upsert(scratchKeyPrefix+key, &envelope)
}

func (s *ephemeralStore) GetScratch(
	_ context.Context, key string,
) (*types.ScratchEnvelope, error) {
	var envelope types.ScratchEnvelope
	if err := s.db.Get(scratchKeyPrefix+key, &envelope); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &envelope, nil
}

func (s *ephemeralStore) DeleteScratch(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.db.Delete(scratchKeyPrefix+key, &types.ScratchEnvelope{}); err != nil {
		if !errors.Is(err, badgerhold.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *ephemeralStore) Clean(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.db.Delete(envelopeKey, &types.EncryptedSecretEnvelope{}); err != nil {
		if !errors.Is(err, badgerhold.ErrNotFound) {
			return err
		}
	}
	if err := s.db.Delete(sessionKey, &types.SessionInfo{}); err != nil {
		if !errors.Is(err, badgerhold.ErrNotFound) {
			return err
		}
	}
	return s.db.DeleteMatching(
		&types.ScratchEnvelope{}, badgerhold.Where(badgerhold.Key).Ne(""),
	)
}

func (s *ephemeralStore) Close() {
	// nolint:errcheck
	s.db.Close()
}
