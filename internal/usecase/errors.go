package usecase

import (
	stderrors "errors"

	"github.com/tile-microservice/internal/domain/repository"
	"github.com/tile-microservice/internal/pkg/errors"
	"github.com/tile-microservice/internal/query"
	"github.com/tile-microservice/internal/repository/remote"
)

// toAppError переводит ошибки удаленной базы и построителя запросов в ошибки API.
// Текст ошибки PostgreSQL отдается клиенту как есть.
func toAppError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}

	switch {
	case stderrors.Is(err, query.ErrEmptySQL),
		stderrors.Is(err, query.ErrNoGeometryColumn),
		stderrors.Is(err, query.ErrInvalidColumn),
		stderrors.Is(err, query.ErrInvalidBoundingBox),
		stderrors.Is(err, query.ErrEmptyIdentitySet):
		return errors.Wrap(errors.ErrInvalidInput.WithMessage(err.Error()), err)
	}

	msg := remote.Message(err)
	switch remote.KindOf(err) {
	case remote.KindNotFound:
		return errors.Wrap(errors.ErrConnectionNotFound, err)
	case remote.KindConnection:
		return errors.Wrap(errors.ErrConnectionFailed.WithMessage(msg), err)
	case remote.KindCapability:
		return errors.Wrap(errors.ErrCapabilityUnsupported.WithMessage(msg), err)
	case remote.KindQuery:
		return errors.Wrap(errors.ErrQueryFailed.WithMessage(msg), err)
	case remote.KindPoolExhausted:
		return errors.Wrap(errors.ErrPoolExhausted, err)
	}
	return errors.Wrap(errors.ErrInternalServer, err)
}

// notFound переводит ErrNotFound хранилища метаданных в ошибку API
func notFound(err error, base *errors.AppError) error {
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.Wrap(base, err)
	}
	return errors.Wrap(errors.ErrInternalServer, err)
}
