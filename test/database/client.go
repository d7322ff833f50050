// Package database provides test database client construction.
package database

import (
	"testing"

	"github.com/newsdesk-ai/newsdesk/pkg/database"
	"github.com/newsdesk-ai/newsdesk/test/util"
)

// NewTestClient creates a migrated test database client.
// In CI (when CI_DATABASE_URL is set): connects to the external PostgreSQL
// service container. In local dev: spins up a testcontainer. The schema is
// dropped automatically when the test ends.
func NewTestClient(t *testing.T) *database.Client {
	pool := util.SetupTestPool(t)
	return database.NewClientFromPool(pool)
}
