package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationsGuardOpenEpisodes(t *testing.T) {
	var found bool
	for _, stmt := range migrationStatements {
		if strings.Contains(stmt, "ux_controls_open_episode") {
			found = true
			assert.Contains(t, stmt, "WHERE egress_at IS NULL")
		}
	}
	assert.True(t, found, "open episode index missing")
}

func TestMigrationsCreateTablesBeforeReferences(t *testing.T) {
	index := func(table string) int {
		for i, stmt := range migrationStatements {
			if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS "+table+" ") {
				return i
			}
		}
		return -1
	}

	sanctions, vehicles, controls := index("sanction_types"), index("vehicles"), index("controls")
	assert.GreaterOrEqual(t, sanctions, 0)
	assert.Less(t, sanctions, vehicles)
	assert.Less(t, vehicles, controls)
}
