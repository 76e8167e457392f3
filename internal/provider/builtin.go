package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/kballard/go-shellquote"
	"github.com/shyim/db-auto-backup/internal/docker"
)

// ErrMissingRootPassword is returned when a MySQL/MariaDB container exposes
// neither root password variable.
var ErrMissingRootPassword = errors.New("unable to find MySQL root password")

// Environment variable names read from database containers
const (
	EnvPostgresUser        = "POSTGRES_USER"
	EnvMariaDBRootPassword = "MARIADB_ROOT_PASSWORD"
	EnvMySQLRootPassword   = "MYSQL_ROOT_PASSWORD"
)

const defaultPostgresUser = "postgres"

// Builtin returns the default provider table
func Builtin() Registry {
	return Registry{
		{
			Name: "postgres",
			Patterns: []string{
				"postgres",
				"tensorchord/pgvecto-rs",
				"nextcloud/aio-postgresql",
				"timescale/timescaledb",
			},
			Command:       PostgresCommand,
			FileExtension: "sql",
		},
		{
			Name:          "mysql",
			Patterns:      []string{"mysql", "mariadb", "linuxserver/mariadb"},
			Command:       MySQLCommand,
			FileExtension: "sql",
		},
		{
			Name:          "redis",
			Patterns:      []string{"redis"},
			Command:       RedisCommand,
			FileExtension: "rdb",
		},
	}
}

// PostgresCommand dumps the whole cluster as the container's admin user
func PostgresCommand(ctx context.Context, container docker.ContainerInfo, inspector Inspector) (string, error) {
	env, err := inspector.ContainerEnv(ctx, container.ID)
	if err != nil {
		return "", err
	}

	user, ok := env[EnvPostgresUser]
	if !ok {
		user = defaultPostgresUser
	}

	return shellquote.Join("pg_dumpall", "-U", user), nil
}

// MySQLCommand dumps all databases with the root account. The password is
// expanded by the shell inside the container so it never shows up in the
// exec arguments.
func MySQLCommand(ctx context.Context, container docker.ContainerInfo, inspector Inspector) (string, error) {
	env, err := inspector.ContainerEnv(ctx, container.ID)
	if err != nil {
		return "", err
	}

	// The mariadb image accepts both
	var auth string
	if _, ok := env[EnvMariaDBRootPassword]; ok {
		auth = "-p$" + EnvMariaDBRootPassword
	} else if _, ok := env[EnvMySQLRootPassword]; ok {
		auth = "-p$" + EnvMySQLRootPassword
	} else {
		return "", fmt.Errorf("%w for %s", ErrMissingRootPassword, container.Name)
	}

	// MariaDB 11+ ships mariadb-dump and may drop the mysqldump alias
	dumpBinary := "mysqldump"
	exists, err := inspector.BinaryExists(ctx, container.ID, "mariadb-dump")
	if err != nil {
		return "", fmt.Errorf("failed to probe for mariadb-dump: %w", err)
	}
	if exists {
		dumpBinary = "mariadb-dump"
	}

	return fmt.Sprintf("bash -c '%s %s --all-databases'", dumpBinary, auth), nil
}

// RedisCommand forces a snapshot and streams it. SAVE blocks the server
// until the snapshot is written.
func RedisCommand(_ context.Context, _ docker.ContainerInfo, _ Inspector) (string, error) {
	return "sh -c 'redis-cli SAVE > /dev/null && cat /data/dump.rdb'", nil
}
