package models

import "github.com/uptrace/bun"

// Result holds one finisher's placing within a category.
type Result struct {
	bun.BaseModel `bun:"table:resultados,alias:r"`

	ID        int     `bun:"id,pk,autoincrement" json:"id"`
	Category  string  `bun:"categoria,notnull" json:"category"`
	Placement int     `bun:"colocacao,notnull" json:"placement"`
	Bib       int     `bun:"numero_peito,notnull" json:"bib"`
	Name      string  `bun:"nome,notnull" json:"name"`
	Sex       string  `bun:"sexo,notnull" json:"sex"`
	Team      *string `bun:"equipe" json:"team,omitempty"`
	Time      string  `bun:"tempo,notnull" json:"time"`
}
