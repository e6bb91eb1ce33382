// Package store holds every query the API runs against the registration
// database. Each method issues a single statement.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/padraicbc/inscricoes/models"
)

// ErrNotFound is returned when a lookup or update matches no row.
var ErrNotFound = errors.New("store: not found")

// Store runs queries over an injected bun handle.
type Store struct {
	db *bun.DB
}

// New wraps db. The caller keeps ownership of db and closes it on shutdown.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func registrationsQuery(db bun.IDB, dst *[]models.Registration) *bun.SelectQuery {
	return db.NewSelect().
		Model(dst).
		Column("id", "nome_completo", "cpf", "categoria", "kit", "tamanho_camisa", "status").
		OrderExpr("i.id ASC")
}

// Registrations returns all registrations ordered by id.
func (s *Store) Registrations(ctx context.Context) ([]models.Registration, error) {
	regs := []models.Registration{}
	if err := registrationsQuery(s.db, &regs).Scan(ctx); err != nil {
		return nil, fmt.Errorf("listing registrations: %w", err)
	}
	return regs, nil
}

// Kits returns every kit; availability is left for the caller to filter.
func (s *Store) Kits(ctx context.Context) ([]models.Kit, error) {
	kits := []models.Kit{}
	if err := s.db.NewSelect().Model(&kits).OrderExpr("k.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("listing kits: %w", err)
	}
	return kits, nil
}

func currentTiersQuery(db bun.IDB, dst *[]models.Tier, now time.Time) *bun.SelectQuery {
	return db.NewSelect().
		Model(dst).
		Where("l.ativo = ?", true).
		Where("l.data_inicio <= ?", now).
		Where("l.data_fim >= ?", now).
		OrderExpr("l.data_inicio ASC")
}

// CurrentTiers returns active tiers whose window contains now, earliest first.
func (s *Store) CurrentTiers(ctx context.Context, now time.Time) ([]models.Tier, error) {
	tiers := []models.Tier{}
	if err := currentTiersQuery(s.db, &tiers, now).Scan(ctx); err != nil {
		return nil, fmt.Errorf("listing current tiers: %w", err)
	}
	return tiers, nil
}

const resultsByCategorySQL = `
SELECT r.id, r.categoria, r.colocacao, r.numero_peito, r.nome, r.sexo, r.equipe, r.tempo
FROM resultados r
WHERE r.categoria = ?
ORDER BY r.colocacao ASC`

func resultsQuery(db bun.IDB, category string) *bun.RawQuery {
	return db.NewRaw(resultsByCategorySQL, category)
}

// ResultsByCategory returns the finishers of one category by placement.
// category is bound as a query argument, never spliced into the SQL text.
func (s *Store) ResultsByCategory(ctx context.Context, category string) ([]models.Result, error) {
	results := []models.Result{}
	if err := resultsQuery(s.db, category).Scan(ctx, &results); err != nil {
		return nil, fmt.Errorf("listing results for %q: %w", category, err)
	}
	return results, nil
}

func kitPickupQuery(db bun.IDB, reg *models.Registration, picked bool, at time.Time) *bun.UpdateQuery {
	return db.NewUpdate().
		Model(reg).
		Set("kit_retirado = ?", picked).
		Set("updated_at = ?", at).
		WherePK().
		Returning("*")
}

// SetKitPickup stores the pickup flag for one registration and returns the
// row as written. Concurrent calls for the same id are not coordinated; the
// last write wins.
func (s *Store) SetKitPickup(ctx context.Context, id int, picked bool, at time.Time) (*models.Registration, error) {
	reg := &models.Registration{ID: id}
	if err := kitPickupQuery(s.db, reg, picked, at).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating kit pickup for %d: %w", id, err)
	}
	return reg, nil
}

// UserByUsername loads a staff account for sign-in.
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().Model(user).
		Where("username = ?", username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading user %q: %w", username, err)
	}
	return user, nil
}

// SaveUser creates the user or replaces the password and role of an
// existing one with the same username.
func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	_, err := s.db.NewInsert().Model(user).
		On("CONFLICT (username) DO UPDATE").
		Set("password = EXCLUDED.password").
		Set("role = EXCLUDED.role").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("saving user %q: %w", user.Username, err)
	}
	return nil
}
