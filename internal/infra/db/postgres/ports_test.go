package postgres

import (
	"testing"

	"github.com/fixmystore/audit-engine/internal/domain/audit"
	"github.com/fixmystore/audit-engine/internal/domain/auditerrors"
	"github.com/fixmystore/audit-engine/internal/domain/insight"
)

// The Postgres repositories must stay drop-in replacements for the MySQL
// ones behind the same domain ports.
func TestRepositoriesSatisfyPorts(t *testing.T) {
	var _ audit.ReportRepository = (*ReportRepository)(nil)
	var _ insight.Repository = (*InsightRepository)(nil)
	var _ auditerrors.Repository = (*AuditErrorRepository)(nil)
}
