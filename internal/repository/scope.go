package repository

import (
	"github.com/yukikurage/team-task-api/internal/access"
	"gorm.io/gorm"
)

// whereExpr renders an access predicate into a GORM condition.
func whereExpr(e access.Expr) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		sql, args := access.Build(e)
		return db.Where(sql, args...)
	}
}
