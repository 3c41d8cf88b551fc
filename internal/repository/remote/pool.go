package remote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/tile-microservice/internal/domain"
)

// Pool - то, что реестру нужно от пула соединений. Реализуется *pgxpool.Pool и pgxmock.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PoolOptions - параметры пулов удаленных баз
type PoolOptions struct {
	MaxConns       int
	MinConns       int
	ConnectTimeout time.Duration
	// AcquireTimeout - ожидание свободного соединения, 0 - ждать без ограничения
	AcquireTimeout time.Duration
}

// PoolFactory создает пул для подключения
type PoolFactory func(ctx context.Context, conn domain.Connection, opts PoolOptions) (Pool, error)

// NewPgxPoolFactory - фабрика пулов pgxpool
func NewPgxPoolFactory() PoolFactory {
	return func(ctx context.Context, conn domain.Connection, opts PoolOptions) (Pool, error) {
		cfg, err := pgxpool.ParseConfig(conn.ConnString())
		if err != nil {
			return nil, eris.Wrap(err, "parse connection config")
		}

		maxConns := conn.MaxConnections
		if maxConns <= 0 {
			maxConns = opts.MaxConns
		}
		minConns := opts.MinConns
		if minConns > maxConns {
			minConns = maxConns
		}
		cfg.MaxConns = int32(maxConns)
		cfg.MinConns = int32(minConns)
		if opts.ConnectTimeout > 0 {
			cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
		}

		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, eris.Wrapf(err, "create pool for %s", conn)
		}
		if opts.AcquireTimeout <= 0 {
			return pool, nil
		}
		return &boundedPool{pool: pool, acquireTimeout: opts.AcquireTimeout}, nil
	}
}

// ErrPoolExhausted - за AcquireTimeout не освободилось ни одного соединения
var ErrPoolExhausted = errors.New("timed out waiting for a free connection")

// boundedPool ограничивает ожидание соединения, но не время самого запроса
type boundedPool struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

func (p *boundedPool) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	actx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.pool.Acquire(actx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			return nil, &Error{Kind: KindPoolExhausted, Err: eris.Wrap(ErrPoolExhausted, "acquire")}
		}
		return nil, err
	}
	return conn, nil
}

func (p *boundedPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		conn.Release()
		return nil, err
	}
	return &releasingRows{Rows: rows, conn: conn}, nil
}

func (p *boundedPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	conn, err := p.acquire(ctx)
	if err != nil {
		return errRow{err: err}
	}
	return &releasingRow{row: conn.QueryRow(ctx, sql, args...), conn: conn}
}

func (p *boundedPool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *boundedPool) Close() {
	p.pool.Close()
}

type releasingRows struct {
	pgx.Rows
	conn *pgxpool.Conn
	once sync.Once
}

func (r *releasingRows) Close() {
	r.Rows.Close()
	r.once.Do(r.conn.Release)
}

type releasingRow struct {
	row  pgx.Row
	conn *pgxpool.Conn
}

func (r *releasingRow) Scan(dest ...any) error {
	defer r.conn.Release()
	return r.row.Scan(dest...)
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}
