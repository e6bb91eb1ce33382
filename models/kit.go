package models

import (
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Kit is a bundle of items a runner can pick at registration.
type Kit struct {
	bun.BaseModel `bun:"table:kits,alias:k"`

	ID        int             `bun:"id,pk,autoincrement" json:"id"`
	Name      string          `bun:"nome,notnull,unique" json:"name"`
	Price     decimal.Decimal `bun:"preco,notnull,type:numeric(10,2)" json:"price"`
	Items     []string        `bun:"itens,notnull,type:jsonb" json:"items"`
	Available bool            `bun:"disponivel,notnull" json:"available"`
}
