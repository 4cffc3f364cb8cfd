package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cmlabs-hris/recruitment-backend-go/internal/pkg/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDBUser     = "postgres"
	testDBPassword = "postgres"
	testDBName     = "recruitment_test"
)

// TestDatabaseSetup holds a migrated PostgreSQL instance for integration tests.
type TestDatabaseSetup struct {
	DB        *database.DB
	container testcontainers.Container
}

// integrationEnabled gates every test in this package.
func integrationEnabled() bool {
	return os.Getenv("INTEGRATION_TESTS") == "1"
}

// NewTestDatabase connects to TEST_DATABASE_URL when set, otherwise starts a
// postgres container. The schema is migrated either way.
func NewTestDatabase(ctx context.Context) (*TestDatabaseSetup, error) {
	setup := &TestDatabaseSetup{}

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		req := testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     testDBUser,
				"POSTGRES_PASSWORD": testDBPassword,
				"POSTGRES_DB":       testDBName,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		}

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to start postgres container: %w", err)
		}
		setup.container = container

		host, err := container.Host(ctx)
		if err != nil {
			setup.Close(ctx)
			return nil, err
		}
		port, err := container.MappedPort(ctx, "5432")
		if err != nil {
			setup.Close(ctx)
			return nil, err
		}
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			testDBUser, testDBPassword, host, port.Port(), testDBName)
	}

	migrator, err := database.NewMigrator(dsn)
	if err != nil {
		setup.Close(ctx)
		return nil, err
	}
	defer migrator.Close()
	if err := migrator.Up(); err != nil {
		setup.Close(ctx)
		return nil, err
	}

	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolOptions{MaxConns: 10, MinConns: 1})
	if err != nil {
		setup.Close(ctx)
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	setup.DB = db

	return setup, nil
}

// TruncateAllTables removes every row written by a test.
func (t *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := t.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"application_reports",
		"application_stage_histories",
		"applications",
	}

	for _, table := range tables {
		_, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// Close releases the pool and the container.
func (t *TestDatabaseSetup) Close(ctx context.Context) {
	if t.DB != nil {
		t.DB.Close()
	}
	if t.container != nil {
		_ = t.container.Terminate(ctx)
	}
}
