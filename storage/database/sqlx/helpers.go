// Package sqlxrepos implements the core repositories with hand-written SQL
// over sqlx/pq. Every tenant-scoped query carries `school_id = ?` so rows can
// never leak across tenants, whatever the caller passes in the filters.
package sqlxrepos

import (
	"strings"

	"github.com/lib/pq"

	"github.com/trezcool/shule/core"
)

// uniqueViolation is the pq error code for unique constraint violations.
const uniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == uniqueViolation && strings.Contains(pqErr.Constraint, constraint)
}

// whereClause joins conditions built with `?` placeholders; callers Rebind
// the final query.
func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func orderByClause(ordering []core.DBOrdering, fallback string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + fallback
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func intsToInterfaces(ids []int) []interface{} {
	out := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		out = append(out, id)
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
