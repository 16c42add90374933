// Package rbac resolves role permissions and guards HTTP routes with them.
package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Well-known permission module names used on route guards.
const (
	ModuleIndents     = "indents"
	ModuleProcurement = "procurement"
	ModuleGoodsIn     = "goods_in"
	ModuleRTV         = "rtv"
	ModuleMasterData  = "master_data"
	ModuleInventory   = "inventory"
	ModuleAudit       = "audit"
)

// PermissionSource resolves the permission modules granted to a tenant role.
type PermissionSource interface {
	Permissions(ctx context.Context, tenantID int64, role string) ([]string, error)
}

// Service reads role grants from the roles table.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a Service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Permissions returns the permission modules granted to role within the
// tenant. An unknown role yields no permissions rather than an error.
func (s *Service) Permissions(ctx context.Context, tenantID int64, role string) ([]string, error) {
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT module FROM role_permissions rp
JOIN roles r ON r.id = rp.role_id
WHERE r.tenant_id = $1 AND LOWER(r.name) = $2`, tenantID, role)
	if err != nil {
		return nil, fmt.Errorf("rbac: query permissions: %w", err)
	}
	defer rows.Close()

	var modules []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("rbac: scan permission: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}
