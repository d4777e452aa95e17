package postgres

import (
	"context"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marcodd23/go-db-core/pkg/dbx"
	"github.com/marcodd23/go-db-core/pkg/logx"
	"github.com/marcodd23/go-db-core/test"
)

const (
	postgresContainerImage = "docker.io/postgres:16-alpine"
	postgresContainerPort  = "5432/tcp"

	MainDbName     = "main-db"
	MainDbUser     = "postgres"
	MainDbPassword = "password"
)

const TestSnapshotId = "test-snapshot"

// PostgresContainer represents the postgres Container used in integration tests.
type PostgresContainer struct {
	Container  *postgres.PostgresContainer
	MappedPort nat.Port
	Host       string
	DbName     string
	DbUser     string
	DbPassword string
}

// StartPostgresContainerWithInitScript - start a postgres container seeded
// with the given init script.
func StartPostgresContainerWithInitScript(ctx context.Context, t *testing.T, initScriptPath string) *PostgresContainer {
	test.ConfigTestRootPath()

	pg, err := postgres.Run(ctx,
		postgresContainerImage,
		postgres.WithInitScripts(filepath.Clean(initScriptPath)),
		postgres.WithDatabase(MainDbName),
		postgres.WithUsername(MainDbUser),
		postgres.WithPassword(MainDbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(10*time.Second)),
	)

	require.NoError(t, err)
	require.NotNil(t, pg)

	err = pg.Start(ctx)
	require.NoError(t, err)

	mappedPort, err := pg.MappedPort(ctx, postgresContainerPort)
	require.NoError(t, err)

	host, err := pg.Host(ctx)
	require.NoError(t, err)

	log.Printf("Postgres running at %s:%s", host, mappedPort.Port())

	// Create a snapshot of the database to restore later
	err = pg.Snapshot(ctx, postgres.WithSnapshotName(TestSnapshotId))
	require.NoError(t, err)

	return &PostgresContainer{
		Container:  pg,
		MappedPort: mappedPort,
		Host:       host,
		DbName:     MainDbName,
		DbUser:     MainDbUser,
		DbPassword: MainDbPassword,
	}
}

// StartPostgresContainer - start a postgres container seeded with the
// default schema.
func StartPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	return StartPostgresContainerWithInitScript(ctx, t,
		filepath.Join("test/testcontainer/postgres", "init_schema.sql"))
}

func (c *PostgresContainer) StopContainer(ctx context.Context, t *testing.T) {
	logx.GetLogger().LogInfo(ctx, "Terminating the Container ....")

	timeout := time.Second * 3

	err := c.Container.Stop(ctx, &timeout)
	require.NoError(t, err, "error stopping the Container")
}

// ConnConfig - connection configuration pointing at the running container.
func (c *PostgresContainer) ConnConfig() dbx.ConnConfig {
	return dbx.ConnConfig{
		IsLocalEnv: true,
		Host:       c.Host,
		Port:       int32(c.MappedPort.Int()),
		DBName:     c.DbName,
		User:       c.DbUser,
		Password:   c.DbPassword,
		MaxConn:    1,
	}
}
