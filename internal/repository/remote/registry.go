// Package remote держит пулы соединений к удаленным PostGIS базам пользователя.
package remote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/domain/repository"
)

// Options - настройки реестра
type Options struct {
	Pool         PoolOptions
	Requirements Requirements
}

// Remote - открытый и проверенный пул одного подключения
type Remote struct {
	ConnectionID int64
	Pool         Pool
	GeometryOID  uint32
	Versions     Versions
	OpenedAt     time.Time
}

// ErrRegistryClosed - реестр закрыт, новые пулы не открываются
var ErrRegistryClosed = errors.New("remote: registry is closed")

// errStale - пока пул открывался, подключение сбросили или переподключили
var errStale = errors.New("remote: connection changed while opening pool")

// maxOpenAttempts ограничивает повторы, когда открытый пул устарел до сохранения
const maxOpenAttempts = 3

// Registry хранит ровно один живой пул на id подключения. Пулы создаются лениво.
// Resolve и Reconnect для одного id выполняются строго по очереди. Invalidate, Reconnect и Close
// увеличивают поколение id, и пул, открытый по учетным данным прошлого поколения, не сохраняется.
type Registry struct {
	source  repository.ConnectionSource
	factory PoolFactory
	opts    Options
	logger  *zap.Logger

	mu     sync.RWMutex
	pools  map[int64]*Remote
	gens   map[int64]uint64
	locks  map[int64]chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewRegistry создает реестр подключений
func NewRegistry(source repository.ConnectionSource, factory PoolFactory, opts Options, logger *zap.Logger) *Registry {
	if opts.Pool.MaxConns <= 0 {
		opts.Pool.MaxConns = 5
	}
	if opts.Pool.MinConns <= 0 {
		opts.Pool.MinConns = 1
	}
	return &Registry{
		source:  source,
		factory: factory,
		opts:    opts,
		logger:  logger,
		pools:   make(map[int64]*Remote),
		gens:    make(map[int64]uint64),
		locks:   make(map[int64]chan struct{}),
	}
}

// Resolve возвращает пул подключения, открывая его при первом обращении
func (r *Registry) Resolve(ctx context.Context, connectionID int64) (*Remote, error) {
	for attempt := 1; ; attempt++ {
		if rem, ok := r.Cached(connectionID); ok {
			return rem, nil
		}
		rem, err := r.lockedConnect(ctx, connectionID, false)
		if errors.Is(err, errStale) && attempt < maxOpenAttempts {
			continue
		}
		return rem, err
	}
}

// Reconnect всегда открывает новый пул (например, после смены учетных данных) и заменяет им
// текущий. Старый пул закрывается после замены, идущие на нем запросы дорабатывают.
func (r *Registry) Reconnect(ctx context.Context, connectionID int64) (*Remote, error) {
	// открывающийся сейчас по старым учетным данным пул не должен попасть в реестр
	r.bump(connectionID)
	for attempt := 1; ; attempt++ {
		rem, err := r.lockedConnect(ctx, connectionID, true)
		if errors.Is(err, errStale) && attempt < maxOpenAttempts {
			continue
		}
		return rem, err
	}
}

// Cached возвращает пул без открытия
func (r *Registry) Cached(connectionID int64) (*Remote, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rem, ok := r.pools[connectionID]
	return rem, ok
}

// Len - количество открытых пулов
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}

// Invalidate убирает пул из реестра и закрывает его
func (r *Registry) Invalidate(connectionID int64) bool {
	r.mu.Lock()
	r.gens[connectionID]++
	old, ok := r.pools[connectionID]
	delete(r.pools, connectionID)
	r.mu.Unlock()

	if ok {
		r.retire(old)
	}
	return ok
}

// TestConnection открывает временный пул, проверяет доступность и версии и всегда закрывает его.
// Реестр не изменяется.
func (r *Registry) TestConnection(ctx context.Context, conn domain.Connection) (Versions, error) {
	rem, err := r.open(ctx, conn)
	if err != nil {
		return Versions{}, err
	}
	rem.Pool.Close()
	return rem.Versions, nil
}

// Close закрывает все пулы и дожидается закрытия вытесненных.
// Пулы, которые еще открываются, закрываются вместо сохранения.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	pools := r.pools
	r.pools = make(map[int64]*Remote)
	r.mu.Unlock()

	for id, rem := range pools {
		rem.Pool.Close()
		r.logger.Info("Remote pool closed", zap.Int64("connection_id", id))
	}
	r.wg.Wait()
}

// lockedConnect открывает пул под блокировкой id. Без force уже сохраненный пул возвращается как есть.
func (r *Registry) lockedConnect(ctx context.Context, connectionID int64, force bool) (*Remote, error) {
	unlock, err := r.lock(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !force {
		if rem, ok := r.Cached(connectionID); ok {
			r.logger.Debug("Connection resolved while waiting", zap.Int64("connection_id", connectionID))
			return rem, nil
		}
	}

	r.mu.RLock()
	gen, closed := r.gens[connectionID], r.closed
	r.mu.RUnlock()
	if closed {
		return nil, newError(KindConnection, ErrRegistryClosed)
	}
	return r.connect(ctx, connectionID, gen)
}

// lock захватывает блокировку id или возвращает ошибку отмены ctx
func (r *Registry) lock(ctx context.Context, connectionID int64) (func(), error) {
	r.mu.Lock()
	l, ok := r.locks[connectionID]
	if !ok {
		l = make(chan struct{}, 1)
		r.locks[connectionID] = l
	}
	r.mu.Unlock()

	select {
	case l <- struct{}{}:
		return func() { <-l }, nil
	case <-ctx.Done():
		return nil, newError(KindConnection, eris.Wrapf(ctx.Err(), "wait for connection %d", connectionID))
	}
}

func (r *Registry) bump(connectionID int64) {
	r.mu.Lock()
	r.gens[connectionID]++
	r.mu.Unlock()
}

func (r *Registry) connect(ctx context.Context, connectionID int64, gen uint64) (*Remote, error) {
	// открытие пула не должно прерываться отменой запроса, к которому присоединились другие
	ctx = context.WithoutCancel(ctx)
	if t := r.opts.Pool.ConnectTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	conn, err := r.source.GetConnection(ctx, connectionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, eris.Wrapf(err, "connection %d", connectionID))
		}
		return nil, eris.Wrapf(err, "load connection %d", connectionID)
	}

	rem, err := r.open(ctx, *conn)
	if err != nil {
		r.logger.Warn("Failed to open remote pool",
			zap.Int64("connection_id", connectionID),
			zap.String("kind", KindOf(err).String()),
			zap.Error(err))
		return nil, err
	}
	rem.ConnectionID = connectionID

	if err := r.store(rem, gen); err != nil {
		r.logger.Info("Discarded remote pool opened for outdated connection",
			zap.Int64("connection_id", connectionID),
			zap.Error(err))
		return nil, err
	}

	r.logger.Info("Remote pool opened",
		zap.Int64("connection_id", connectionID),
		zap.String("postgres", rem.Versions.Postgres),
		zap.String("postgis", rem.Versions.PostGIS),
		zap.Uint32("geometry_oid", rem.GeometryOID))
	return rem, nil
}

// open создает пул и проверяет его. При любой ошибке пул закрывается.
func (r *Registry) open(ctx context.Context, conn domain.Connection) (*Remote, error) {
	pool, err := r.factory(ctx, conn, r.opts.Pool)
	if err != nil {
		return nil, newError(KindConnection, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, newError(KindConnection, eris.Wrapf(err, "ping %s", conn))
	}

	versions, err := checkVersions(ctx, pool, r.opts.Requirements)
	if err != nil {
		pool.Close()
		return nil, err
	}

	oid, err := geometryTypeOID(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &Remote{
		ConnectionID: conn.ID,
		Pool:         pool,
		GeometryOID:  oid,
		Versions:     versions,
		OpenedAt:     time.Now(),
	}, nil
}

// store кладет пул в реестр и закрывает вытесненный. Если поколение id сменилось
// или реестр закрыт, новый пул закрывается и не сохраняется.
func (r *Registry) store(rem *Remote, gen uint64) error {
	r.mu.Lock()
	if r.closed || r.gens[rem.ConnectionID] != gen {
		err := newError(KindConnection, errStale)
		if r.closed {
			err = newError(KindConnection, ErrRegistryClosed)
		}
		r.mu.Unlock()
		rem.Pool.Close()
		return err
	}
	old := r.pools[rem.ConnectionID]
	r.pools[rem.ConnectionID] = rem
	r.mu.Unlock()

	if old != nil && old != rem {
		r.retire(old)
	}
	return nil
}

// retire закрывает пул в фоне: pgxpool.Close ждет возврата всех занятых соединений
func (r *Registry) retire(rem *Remote) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		rem.Pool.Close()
		r.logger.Info("Stale remote pool closed", zap.Int64("connection_id", rem.ConnectionID))
	}()
}
