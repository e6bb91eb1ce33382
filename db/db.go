package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"go.uber.org/zap"

	"github.com/padraicbc/inscricoes/config"
	"github.com/padraicbc/inscricoes/models"
)

// Open builds a bun handle over a PostgreSQL connector without connecting.
func Open(dsn string, debug bool) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// Setup opens a PostgreSQL connection using the provided config and verifies
// it with a ping. The caller owns the returned handle and must Close it.
func Setup(ctx context.Context, cfg *config.Config) (*bun.DB, error) {
	db := Open(cfg.PostgresDSN(), cfg.Debug)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

// Models lists every table in creation order.
var Models = []interface{}{
	(*models.User)(nil),
	(*models.Kit)(nil),
	(*models.Tier)(nil),
	(*models.Registration)(nil),
	(*models.Result)(nil),
}

// CreateTables creates all tables and their lookup indexes if missing.
func CreateTables(ctx context.Context, db *bun.DB) error {
	for _, model := range Models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}

	indexes := []struct {
		model   interface{}
		name    string
		columns []string
	}{
		{(*models.Result)(nil), "resultados_categoria_colocacao_idx", []string{"categoria", "colocacao"}},
		{(*models.Tier)(nil), "lotes_janela_idx", []string{"ativo", "data_inicio", "data_fim"}},
		{(*models.Registration)(nil), "inscricoes_cpf_idx", []string{"cpf"}},
	}
	for _, ix := range indexes {
		_, err := db.NewCreateIndex().
			Model(ix.model).
			Index(ix.name).
			Column(ix.columns...).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			// Non-fatal: an index only affects lookup speed.
			zap.L().Warn("create index failed", zap.String("index", ix.name), zap.Error(err))
		}
	}

	return nil
}
