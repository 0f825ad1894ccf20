// Package inmemorystore provides the default ephemeral store: a plain
// process-memory map. It satisfies the ephemeral contract by construction,
// since nothing survives process teardown.
package inmemorystore

import (
	"context"
	"sync"

	"github.com/CrafterTA/UnityWallet-sub002/types"
)

type ephemeralStore struct {
	lock     *sync.RWMutex
	envelope *types.EncryptedSecretEnvelope
	session  *types.SessionInfo
	scratch  map[string]types.ScratchEnvelope
}

func NewEphemeralStore() types.EphemeralStore {
	return &ephemeralStore{
		lock:    &sync.RWMutex{},
		scratch: make(map[string]types.ScratchEnvelope),
	}
}

func (s *ephemeralStore) GetType() string {
	return types.InMemoryStore
}

func (s *ephemeralStore) AddEnvelope(
	_ context.Context, envelope types.EncryptedSecretEnvelope,
) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.envelope = &envelope
	return nil
}

func (s *ephemeralStore) GetEnvelope(_ context.Context) (*types.EncryptedSecretEnvelope, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.envelope == nil {
		return nil, nil
	}
	envelope := *s.envelope
	return &envelope, nil
}

func (s *ephemeralStore) AddSessionInfo(_ context.Context, info types.SessionInfo) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.session = &info
	return nil
}

func (s *ephemeralStore) GetSessionInfo(_ context.Context) (*types.SessionInfo, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.session == nil {
		return nil, nil
	}
	info := *s.session
	return &info, nil
}

func (s *ephemeralStore) AddScratch(
	_ context.Context, key string, envelope types.ScratchEnvelope,
) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.scratch[key] = envelope
	return nil
}

func (s *ephemeralStore) GetScratch(
	_ context.Context, key string,
) (*types.ScratchEnvelope, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	envelope, ok := s.scratch[key]
	if !ok {
		return nil, nil
	}
	return &envelope, nil
}

func (s *ephemeralStore) DeleteScratch(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.scratch, key)
	return nil
}

func (s *ephemeralStore) Clean(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.envelope = nil
	s.session = nil
	s.scratch = make(map[string]types.ScratchEnvelope)
	return nil
}

func (s *ephemeralStore) Close() {
	// nolint:errcheck
	s.Clean(context.Background())
}
