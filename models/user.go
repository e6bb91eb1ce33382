package models

import "github.com/uptrace/bun"

// User is a staff account with a bcrypt-hashed password and a role.
type User struct {
	bun.BaseModel `bun:"table:usuarios,alias:u"`

	ID       int    `bun:"id,pk,autoincrement" json:"id"`
	Username string `bun:"username,notnull,unique" json:"username"`
	Password string `bun:"password,notnull" json:"-"`
	Role     string `bun:"role,notnull,default:'user'" json:"role"`
}
