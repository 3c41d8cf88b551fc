package remote

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"golang.org/x/mod/semver"
)

const (
	versionQuery  = "SELECT current_setting('server_version') AS postgres, PostGIS_Lib_Version() AS postgis"
	geometryQuery = "SELECT oid FROM pg_type WHERE typname = 'geometry'"

	// undefined_function: PostGIS_Lib_Version отсутствует
	pgUndefinedFunction = "42883"
)

// Versions - версии сервера, прочитанные при подключении
type Versions struct {
	Postgres string `json:"postgres"`
	PostGIS  string `json:"postgis"`
}

// Requirements - минимальные версии
type Requirements struct {
	MinPostgres string
	MinPostGIS  string
}

var versionRe = regexp.MustCompile(`^\d+(\.\d+){0,2}`)

// canonical приводит "14.5 (Debian 14.5-1)" к "v14.5" для сравнения через semver
func canonical(version string) string {
	m := versionRe.FindString(version)
	if m == "" {
		return ""
	}
	return "v" + m
}

// atLeast - found >= required. Нераспознанная найденная версия считается недостаточной.
func atLeast(found, required string) bool {
	req := canonical(required)
	if req == "" {
		return true
	}
	f := canonical(found)
	if f == "" || !semver.IsValid(f) {
		return false
	}
	return semver.Compare(f, req) >= 0
}

func checkVersions(ctx context.Context, pool Pool, req Requirements) (Versions, error) {
	var v Versions
	err := pool.QueryRow(ctx, versionQuery).Scan(&v.Postgres, &v.PostGIS)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedFunction {
			return v, detailError(KindCapability,
				fmt.Sprintf("PostGIS %s or higher is required - Found none", req.MinPostGIS))
		}
		return v, newError(KindConnection, eris.Wrap(err, "read server versions"))
	}

	if !atLeast(v.Postgres, req.MinPostgres) {
		return v, detailError(KindCapability,
			fmt.Sprintf("PostgreSQL %s or higher is required - Found %s", req.MinPostgres, v.Postgres))
	}
	if !atLeast(v.PostGIS, req.MinPostGIS) {
		return v, detailError(KindCapability,
			fmt.Sprintf("PostGIS %s or higher is required - Found %s", req.MinPostGIS, v.PostGIS))
	}
	return v, nil
}

func geometryTypeOID(ctx context.Context, pool Pool) (uint32, error) {
	var oid uint32
	err := pool.QueryRow(ctx, geometryQuery).Scan(&oid)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, detailError(KindCapability,
			"Could not find Geometry type in database. Is PostGIS installed?")
	}
	if err != nil {
		return 0, newError(KindConnection, eris.Wrap(err, "read geometry type oid"))
	}
	return oid, nil
}
