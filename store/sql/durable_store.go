package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/CrafterTA/UnityWallet-sub002/types"
)

//go:embed migrations/*
var migrations embed.FS

const (
	driverName = "sqlite"
	dbName     = "wallet.db"
)

type durableStore struct {
	db      *sql.DB
	datadir string
	lock    *sync.Mutex
}

func NewDurableStore(dir string) (types.DurableStore, error) {
	db, err := sql.Open(driverName, filepath.Join(dir, dbName))
	if err != nil {
		return nil, fmt.Errorf("failed to open durable store: %s", err)
	}
	if err := migrateUp(db); err != nil {
		// nolint:errcheck
		db.Close()
		return nil, err
	}
	return &durableStore{
		db:      db,
		datadir: dir,
		lock:    &sync.Mutex{},
	}, nil
}

func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	target, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, driverName, target)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %s", err)
	}
	return nil
}

func (s *durableStore) GetType() string {
	return types.SQLStore
}

func (s *durableStore) GetDatadir() string {
	return s.datadir
}

func (s *durableStore) AddWallet(ctx context.Context, data types.WalletData) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	accountExists := 0
	if data.AccountExists {
		accountExists = 1
	}
	fundedOrExisting := 0
	if data.FundedOrExisting {
		fundedOrExisting = 1
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO wallet (id, public_key, account_exists, funded_or_existing, created_at)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   public_key = excluded.public_key,
		   account_exists = excluded.account_exists,
		   funded_or_existing = excluded.funded_or_existing,
		   created_at = excluded.created_at`,
		data.PublicKey, accountExists, fundedOrExisting, data.CreatedAt.Unix(),
	)
	return err
}

func (s *durableStore) GetWallet(ctx context.Context) (*types.WalletData, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT public_key, account_exists, funded_or_existing, created_at
		 FROM wallet WHERE id = 1`,
	)

	var data types.WalletData
	var accountExists, fundedOrExisting int
	var createdAt int64
	if err := row.Scan(
		&data.PublicKey, &accountExists, &fundedOrExisting, &createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	data.AccountExists = accountExists != 0
	data.FundedOrExisting = fundedOrExisting != 0
	data.CreatedAt = time.Unix(createdAt, 0)
	return &data, nil
}

func (s *durableStore) AddKeystore(ctx context.Context, record types.KeystoreRecord) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	buf, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO keystore (id, record) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET record = excluded.record`,
		string(buf),
	)
	return err
}

func (s *durableStore) GetKeystore(ctx context.Context) (*types.KeystoreRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT record FROM keystore WHERE id = 1`)

	var buf string
	if err := row.Scan(&buf); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var record types.KeystoreRecord
	if err := json.Unmarshal([]byte(buf), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *durableStore) AddPreferences(ctx context.Context, prefs types.Preferences) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO preferences (id, theme) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET theme = excluded.theme`,
		prefs.Theme,
	)
	return err
}

func (s *durableStore) GetPreferences(ctx context.Context) (*types.Preferences, error) {
	row := s.db.QueryRowContext(ctx, `SELECT theme FROM preferences WHERE id = 1`)

	var prefs types.Preferences
	if err := row.Scan(&prefs.Theme); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &prefs, nil
}

// CleanData wipes wallet metadata and keystore in one transaction, leaving
// preferences untouched.
func (s *durableStore) CleanData(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, stmt := range []string{`DELETE FROM wallet`, `DELETE FROM keystore`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			// nolint:errcheck
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *durableStore) Close() {
	// nolint:errcheck
	s.db.Close()
}
