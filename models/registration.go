package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Registration is a single runner's sign-up for the race.
type Registration struct {
	bun.BaseModel `bun:"table:inscricoes,alias:i"`

	ID          int       `bun:"id,pk,autoincrement" json:"id"`
	FullName    string    `bun:"nome_completo,notnull" json:"fullName"`
	CPF         string    `bun:"cpf,notnull" json:"cpf"`
	Category    string    `bun:"categoria,notnull" json:"category"`
	Kit         string    `bun:"kit,notnull" json:"kit"`
	ShirtSize   string    `bun:"tamanho_camisa,notnull" json:"shirtSize"`
	Status      string    `bun:"status,notnull,default:'pendente'" json:"status"`
	KitPickedUp bool      `bun:"kit_retirado,notnull,default:false" json:"kitPickedUp"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}
