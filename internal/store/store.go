package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"solidarity/internal/utils"
	"solidarity/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"

	serializableAttempts = 2
)

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	pgxscan.Querier
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// geography casts a geometry column stored in EPSG:3857 to WGS84 geography
// so distances are geodesic metres rather than projected units.
func geography(column string) string {
	return fmt.Sprintf("ST_Transform(%s, 4326)::geography", column)
}

// lonLatExprs reads the lon/lat columns of types.Location back out of the
// stored geometry.
func lonLatExprs(alias string) map[string]string {
	return map[string]string{
		"lon": fmt.Sprintf("ST_X(ST_Transform(%s.geom, 4326)) AS lon", alias),
		"lat": fmt.Sprintf("ST_Y(ST_Transform(%s.geom, 4326)) AS lat", alias),
	}
}

func lonLatColumns(alias string) []string {
	exprs := lonLatExprs(alias)
	return []string{exprs["lon"], exprs["lat"]}
}

// locatedRow maps a row value for insert, replacing the lon/lat pair with
// the projected geometry.
func locatedRow(input any, loc types.Location) map[string]any {
	row := utils.StructToMap(input, "id", "lon", "lat")
	row["geom"] = pointValue(loc)
	return row
}

func distanceColumn(from, to string) string {
	return fmt.Sprintf("ST_Distance(%s, %s) AS distance_m", geography(from+".geom"), geography(to+".geom"))
}

func pointValue(loc types.Location) sq.Sqlizer {
	return sq.Expr("ST_Transform(ST_SetSRID(ST_MakePoint(?, ?), 4326), 3857)", loc.Lon, loc.Lat)
}

func returning(columns ...string) string {
	return "RETURNING " + strings.Join(columns, ", ")
}

// inSerializableTx runs fn in a SERIALIZABLE transaction, retrying once on
// a serialization failure. Rollback runs on a context detached from the
// caller so an abandoned request never leaves the transaction half applied.
func inSerializableTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var err error
	for range serializableAttempts {
		err = runTx(ctx, pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
		if !isSerializationFailure(err) {
			return err
		}
	}
	return err
}

func runTx(ctx context.Context, pool *pgxpool.Pool, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// forwardOnly guards the status updates: needs and offers only ever move
// active -> assigned -> completed.
func forwardOnly(to types.Status, from []types.Status) error {
	if len(from) == 0 {
		return fmt.Errorf("no source status given for move to %s", to)
	}
	for _, f := range from {
		if !f.CanMoveTo(to) {
			return fmt.Errorf("status cannot move from %s to %s", f, to)
		}
	}
	return nil
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

func isSerializationFailure(err error) bool {
	code := pgErrorCode(err)
	return code == pgSerializationFailure || code == pgDeadlockDetected
}
