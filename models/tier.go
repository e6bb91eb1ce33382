package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Tier is a pricing window ("lote"). It is current only while active and
// inside [StartsAt, EndsAt].
type Tier struct {
	bun.BaseModel `bun:"table:lotes,alias:l"`

	ID       int             `bun:"id,pk,autoincrement" json:"id"`
	Name     string          `bun:"nome,notnull" json:"name"`
	Price    decimal.Decimal `bun:"preco,notnull,type:numeric(10,2)" json:"price"`
	StartsAt time.Time       `bun:"data_inicio,notnull,type:timestamptz" json:"startsAt"`
	EndsAt   time.Time       `bun:"data_fim,notnull,type:timestamptz" json:"endsAt"`
	Active   bool            `bun:"ativo,notnull,default:false" json:"active"`
}

// CurrentAt reports whether the tier is active and its window contains now.
// It is the same predicate store.CurrentTiers applies in SQL.
func (t *Tier) CurrentAt(now time.Time) bool {
	return t.Active && !now.Before(t.StartsAt) && !now.After(t.EndsAt)
}
