package business

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/holdings-portal/internal/config"
	"github.com/openkcm/holdings-portal/internal/storage"
	"github.com/openkcm/holdings-portal/internal/storage/memory"
	sqlstore "github.com/openkcm/holdings-portal/internal/storage/sql"
	valkeystore "github.com/openkcm/holdings-portal/internal/storage/valkey"
)

var ErrUnknownStorageBackend = errors.New("unknown storage backend")

// stores holds the durable and transient browser storage. Backends used by
// both share one instance.
type stores struct {
	durable   storage.Store
	transient storage.Store

	memory *memory.Store
	valkey *valkeystore.Store
	sql    *sqlstore.Store

	closers []func()
}

func initStores(ctx context.Context, cfg *config.Config) (_ *stores, err error) {
	st := &stores{}
	defer func() {
		if err != nil {
			st.close()
		}
	}()

	st.durable, err = st.backend(ctx, cfg, cfg.Storage.Durable)
	if err != nil {
		return nil, fmt.Errorf("durable storage: %w", err)
	}

	st.transient, err = st.backend(ctx, cfg, cfg.Storage.Transient)
	if err != nil {
		return nil, fmt.Errorf("transient storage: %w", err)
	}

	return st, nil
}

func (st *stores) backend(ctx context.Context, cfg *config.Config, b config.StorageBackend) (storage.Store, error) {
	switch b {
	case config.StorageMemory:
		if st.memory == nil {
			st.memory = memory.New(cfg.Storage.CleanupInterval)
		}

		return st.memory, nil
	case config.StorageValKey:
		if st.valkey == nil {
			client, err := valkeyClientFromConfig(&cfg.ValKey)
			if err != nil {
				return nil, err
			}

			st.closers = append(st.closers, client.Close)
			st.valkey = valkeystore.NewStore(client, cfg.ValKey.Prefix)
		}

		return st.valkey, nil
	case config.StoragePostgres:
		if st.sql == nil {
			db, err := pgPoolFromConfig(ctx, cfg.Database)
			if err != nil {
				return nil, err
			}

			st.closers = append(st.closers, db.Close)
			st.sql = sqlstore.NewStore(db)
		}

		return st.sql, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorageBackend, b)
	}
}

func (st *stores) close() {
	for _, fn := range st.closers {
		fn()
	}

	st.closers = nil
}

func pgPoolFromConfig(ctx context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	connStr, err := config.MakeConnStr(cfg)
	if err != nil {
		return nil, fmt.Errorf("making dsn from config: %w", err)
	}

	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("initialising pgxpool connection: %w", err)
	}

	return db, nil
}

func valkeyClientFromConfig(cfg *config.ValKey) (valkey.Client, error) {
	valkeyHost, err := commoncfg.LoadValueFromSourceRef(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("loading valkey host: %w", err)
	}

	valkeyUsername, err := commoncfg.LoadValueFromSourceRef(cfg.User)
	if err != nil {
		return nil, fmt.Errorf("loading valkey username: %w", err)
	}

	valkeyPassword, err := commoncfg.LoadValueFromSourceRef(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("loading valkey password: %w", err)
	}

	valkeyOpts := valkey.ClientOption{
		InitAddress: []string{string(valkeyHost)},
		Username:    string(valkeyUsername),
		Password:    string(valkeyPassword),
	}

	if cfg.SecretRef.Type == commoncfg.MTLSSecretType {
		tlsConfig, err := commoncfg.LoadMTLSConfig(&cfg.SecretRef.MTLS)
		if err != nil {
			return nil, fmt.Errorf("loading valkey mTLS config from secret ref: %w", err)
		}

		valkeyOpts.TLSConfig = tlsConfig
	}

	valkeyClient, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return valkeyClient, nil
}
