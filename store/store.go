package store

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"

	filestore "github.com/CrafterTA/UnityWallet-sub002/store/file"
	inmemorystore "github.com/CrafterTA/UnityWallet-sub002/store/inmemory"
	kvstore "github.com/CrafterTA/UnityWallet-sub002/store/kv"
	sqlstore "github.com/CrafterTA/UnityWallet-sub002/store/sql"
	"github.com/CrafterTA/UnityWallet-sub002/types"
)

// Config selects the storage backends. DurableStoreType is one of "kv",
// "sql", "file"; EphemeralStoreType one of "inmemory", "kv" (badger running
// strictly in memory).
type Config struct {
	DurableStoreType   string
	EphemeralStoreType string
	BaseDir            string
	Logger             badger.Logger
}

type service struct {
	durable   types.DurableStore
	ephemeral types.EphemeralStore
}

// NewStore assembles the two typed storage ports behind the aggregate Store
// interface.
func NewStore(storeConfig Config) (types.Store, error) {
	var (
		durable   types.DurableStore
		ephemeral types.EphemeralStore
		err       error
	)

	switch storeConfig.DurableStoreType {
	case types.KVStore:
		durable, err = kvstore.NewDurableStore(storeConfig.BaseDir, storeConfig.Logger)
	case types.SQLStore:
		durable, err = sqlstore.NewDurableStore(storeConfig.BaseDir)
	case types.FileStore:
		durable, err = filestore.NewDurableStore(storeConfig.BaseDir)
	default:
		err = fmt.Errorf("unknown durable store type %q", storeConfig.DurableStoreType)
	}
	if err != nil {
		return nil, err
	}

	switch storeConfig.EphemeralStoreType {
	case types.InMemoryStore, "":
		ephemeral = inmemorystore.NewEphemeralStore()
	case types.KVStore:
		ephemeral, err = kvstore.NewEphemeralStore(storeConfig.Logger)
	default:
		err = fmt.Errorf("unknown ephemeral store type %q", storeConfig.EphemeralStoreType)
	}
	if err != nil {
		durable.Close()
		return nil, err
	}

	return &service{durable, ephemeral}, nil
}

func (s *service) DurableStore() types.DurableStore {
	return s.durable
}

func (s *service) EphemeralStore() types.EphemeralStore {
	return s.ephemeral
}

func (s *service) Clean(ctx context.Context) {
	if err := s.durable.CleanData(ctx); err != nil {
		log.WithError(err).Warn("failed to clean durable store")
	}
	if err := s.ephemeral.Clean(ctx); err != nil {
		log.WithError(err).Warn("failed to clean ephemeral store")
	}
}

func (s *service) Close() {
	s.ephemeral.Close()
	s.durable.Close()
}
