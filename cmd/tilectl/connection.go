package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tile-microservice/internal/bootstrap"
	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/usecase"
)

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Check that a PostGIS database is reachable and recent enough",
	RunE:  runTestConnection,
}

func init() {
	f := testConnectionCmd.Flags()
	f.String("host", "localhost", "Database host")
	f.Int("port", 5432, "Database port")
	f.String("database", "", "Database name")
	f.String("user", "", "Database user")
	f.String("password", "", "Database password")
	f.Bool("ssl", false, "Require TLS")
	_ = testConnectionCmd.MarkFlagRequired("database")
	rootCmd.AddCommand(testConnectionCmd)
}

func runTestConnection(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	var conn domain.Connection
	conn.Host, _ = f.GetString("host")
	conn.Port, _ = f.GetInt("port")
	conn.Database, _ = f.GetString("database")
	conn.Username, _ = f.GetString("user")
	conn.Password, _ = f.GetString("password")
	conn.SSL, _ = f.GetBool("ssl")

	// проверка не обращается к хранилищу метаданных
	registry := bootstrap.NewRegistry(cfg, nil, log)
	defer registry.Close()

	status := usecase.NewConnectionUseCase(registry, log).TestConnection(cmd.Context(), conn)
	if !status.Success {
		return fmt.Errorf("connection failed: %s", status.Error)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ok: PostgreSQL %s, PostGIS %s\n", status.Postgres, status.PostGIS)
	return nil
}
