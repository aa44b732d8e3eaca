package config

import (
	"context"
	"strings"

	"github.com/WRENCH-CLOUD/machnix-sub003/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantGuardPlugin enforces multi-tenant isolation by automatically scoping
// queries/updates/deletes to the request's garage_id when the model has a garage_id column.
//
// NOTE:
// - This does NOT apply to Raw SQL queries. Those must include garage_id manually.
// - Admin/internal bypass is explicit via context flags.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	// Query
	if err := db.Callback().Query().Before("gorm:query").Register("tenant_guard:query", tenantGuardCallback); err != nil {
		return err
	}
	// Row (First/Take)
	if err := db.Callback().Row().Before("gorm:row").Register("tenant_guard:row", tenantGuardCallback); err != nil {
		return err
	}
	// Update
	if err := db.Callback().Update().Before("gorm:update").Register("tenant_guard:update", tenantGuardCallback); err != nil {
		return err
	}
	// Delete
	if err := db.Callback().Delete().Before("gorm:delete").Register("tenant_guard:delete", tenantGuardCallback); err != nil {
		return err
	}
	return nil
}

func tenantGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	if shouldBypassTenantScope(ctx) {
		return
	}
	garageID := garageIdFromContext(ctx)
	if garageID == "" {
		return
	}

	// Only apply if the current model/table includes a garage_id column.
	if db.Statement.Schema == nil {
		return
	}
	hasGarageID := false
	for _, f := range db.Statement.Schema.Fields {
		if strings.EqualFold(f.DBName, "garage_id") {
			hasGarageID = true
			break
		}
	}
	if !hasGarageID {
		return
	}

	// Don't duplicate an explicit tenant filter.
	if whereHasGarageID(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "garage_id"},
				Value:  garageID,
			},
		},
	})
}

func garageIdFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(appctx.ContextKeyGarageId).(string); ok && v != "" {
		return v
	}
	return ""
}

func shouldBypassTenantScope(ctx context.Context) bool {
	if v, ok := ctx.Value(appctx.ContextKeySkipTenantScope).(bool); ok && v {
		return true
	}
	if v, ok := ctx.Value(appctx.ContextKeyIsAdmin).(bool); ok && v {
		return true
	}
	return false
}

func whereHasGarageID(c clause.Clause) bool {
	if c.Expression == nil {
		return false
	}
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if exprHasGarageID(e) {
			return true
		}
	}
	return false
}

func exprHasGarageID(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return colIsGarageID(v.Column)
	case clause.Neq:
		return colIsGarageID(v.Column)
	case clause.IN:
		return colIsGarageID(v.Column)
	case clause.AndConditions:
		for _, x := range v.Exprs {
			if exprHasGarageID(x) {
				return true
			}
		}
		return false
	case clause.OrConditions:
		for _, x := range v.Exprs {
			if exprHasGarageID(x) {
				return true
			}
		}
		return false
	case clause.Expr:
		// Best-effort for raw expressions.
		return strings.Contains(strings.ToLower(v.SQL), "garage_id")
	default:
		return false
	}
}

func colIsGarageID(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "garage_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "garage_id")
	default:
		return false
	}
}
