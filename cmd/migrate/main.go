// cmd/migrate/main.go
// Imports the legacy MySQL registration database into PostgreSQL.
// Re-runs are safe: rows whose id already exists are skipped.
//
// Usage:
//
//	MYSQL_DSN="user:pass@tcp(host:3306)/inscricoes?parseTime=true" \
//	DB_PASS="pgpass" \
//	go run ./cmd/migrate
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	_ "github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"

	"github.com/padraicbc/inscricoes/config"
	bundb "github.com/padraicbc/inscricoes/db"
	"github.com/padraicbc/inscricoes/models"
)

const batchSize = 500

func main() {
	ctx := context.Background()

	cfg := config.LoadDatabase()

	// --- MySQL ---
	if cfg.MySQLDSN == "" {
		log.Fatal("MYSQL_DSN required, e.g.: user:pass@tcp(host:3306)/inscricoes?parseTime=true")
	}
	myDB, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("open mysql: %v", err)
	}
	defer myDB.Close()
	myDB.SetMaxOpenConns(4)
	if err := myDB.PingContext(ctx); err != nil {
		log.Fatalf("ping mysql: %v", err)
	}
	log.Println("connected to MySQL")

	// --- PostgreSQL ---
	pgDB, err := bundb.Setup(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pgDB.Close()
	log.Println("connected to PostgreSQL")

	if err := bundb.CreateTables(ctx, pgDB); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	steps := []struct {
		name string
		fn   func() (int, error)
	}{
		{"kits", func() (int, error) { return migrateKits(ctx, myDB, pgDB) }},
		{"lotes", func() (int, error) { return migrateTiers(ctx, myDB, pgDB) }},
		{"inscricoes", func() (int, error) { return migrateRegistrations(ctx, myDB, pgDB) }},
		{"resultados", func() (int, error) { return migrateResults(ctx, myDB, pgDB) }},
	}

	for _, s := range steps {
		n, err := s.fn()
		if err != nil {
			log.Fatalf("migrate %s: %v", s.name, err)
		}
		log.Printf("%-15s  %d rows migrated", s.name, n)
	}

	resetSequences(ctx, pgDB)
	log.Println("migration complete")
}

// --- helpers ---

func nullStr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	return &n.String
}

// bulkInsert inserts a batch, skipping rows that already exist (idempotent re-runs).
func bulkInsert[T any](ctx context.Context, pgDB *bun.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := pgDB.NewInsert().Model(&rows).On("CONFLICT DO NOTHING").Exec(ctx)
	return err
}

// copyRows runs query on MySQL, converts each row with scan and inserts the
// results in batches of batchSize.
func copyRows[T any](ctx context.Context, myDB *sql.DB, pgDB *bun.DB, query string, scan func(*sql.Rows) (T, error)) (int, error) {
	rows, err := myDB.QueryContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	batch := make([]T, 0, batchSize)
	total := 0
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return total, err
		}
		batch = append(batch, r)
		if len(batch) >= batchSize {
			if err := bulkInsert(ctx, pgDB, batch); err != nil {
				return total, err
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return total, err
	}
	if err := bulkInsert(ctx, pgDB, batch); err != nil {
		return total, err
	}
	return total + len(batch), nil
}

// --- per-table migrations ---

func migrateKits(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return copyRows(ctx, myDB, pgDB,
		"SELECT id, nome, preco, itens, disponivel FROM kits",
		func(rows *sql.Rows) (models.Kit, error) {
			var (
				k     models.Kit
				itens sql.NullString
			)
			if err := rows.Scan(&k.ID, &k.Name, &k.Price, &itens, &k.Available); err != nil {
				return k, err
			}
			k.Items = []string{}
			if itens.Valid && itens.String != "" {
				if err := json.Unmarshal([]byte(itens.String), &k.Items); err != nil {
					return k, fmt.Errorf("kit %d itens: %w", k.ID, err)
				}
			}
			return k, nil
		})
}

func migrateTiers(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return copyRows(ctx, myDB, pgDB,
		"SELECT id, nome, preco, data_inicio, data_fim, ativo FROM lotes",
		func(rows *sql.Rows) (models.Tier, error) {
			var t models.Tier
			err := rows.Scan(&t.ID, &t.Name, &t.Price, &t.StartsAt, &t.EndsAt, &t.Active)
			return t, err
		})
}

func migrateRegistrations(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return copyRows(ctx, myDB, pgDB,
		`SELECT id, nome_completo, cpf, categoria, kit, tamanho_camisa,
		        status, kit_retirado, created_at, updated_at
		 FROM inscricoes`,
		func(rows *sql.Rows) (models.Registration, error) {
			var r models.Registration
			err := rows.Scan(&r.ID, &r.FullName, &r.CPF, &r.Category, &r.Kit, &r.ShirtSize,
				&r.Status, &r.KitPickedUp, &r.CreatedAt, &r.UpdatedAt)
			return r, err
		})
}

func migrateResults(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, error) {
	return copyRows(ctx, myDB, pgDB,
		`SELECT id, categoria, colocacao, numero_peito, nome, sexo, equipe, tempo
		 FROM resultados`,
		func(rows *sql.Rows) (models.Result, error) {
			var (
				r      models.Result
				equipe sql.NullString
			)
			if err := rows.Scan(&r.ID, &r.Category, &r.Placement, &r.Bib, &r.Name, &r.Sex, &equipe, &r.Time); err != nil {
				return r, err
			}
			r.Team = nullStr(equipe)
			return r, nil
		})
}

// resetSequences advances each PG sequence to MAX(id) so new inserts don't conflict.
func resetSequences(ctx context.Context, pgDB *bun.DB) {
	for _, table := range []string{"kits", "lotes", "inscricoes", "resultados"} {
		q := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 1))",
			table,
		)
		if _, err := pgDB.ExecContext(ctx, q); err != nil {
			log.Printf("reset seq %s: %v", table, err)
		}
	}
	log.Println("sequences reset")
}
