package remote

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
)

// Kind - класс ошибки удаленной базы
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound - подключение отсутствует в хранилище метаданных
	KindNotFound
	// KindConnection - не удалось открыть пул или пройти ping
	KindConnection
	// KindCapability - версия PostgreSQL/PostGIS ниже минимальной или PostGIS не установлен
	KindCapability
	// KindQuery - ошибка выполнения пользовательского запроса
	KindQuery
	// KindPoolExhausted - не дождались свободного соединения
	KindPoolExhausted
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConnection:
		return "connection"
	case KindCapability:
		return "capability"
	case KindQuery:
		return "query"
	case KindPoolExhausted:
		return "pool_exhausted"
	}
	return "unknown"
}

// Error - ошибка с классом. Err обычно обернут eris и несет стек.
type Error struct {
	Kind Kind
	Err  error
	// Detail - сообщение для пользователя, если оно отличается от текста Err
	Detail string
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Kind: kind, Err: err}
}

func detailError(kind Kind, detail string) error {
	return &Error{Kind: kind, Err: eris.New(detail), Detail: detail}
}

// KindOf возвращает класс ошибки или KindUnknown
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

// Message - текст ошибки для пользователя. Для ошибок PostgreSQL это сообщение сервера как есть.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message
	}
	var re *Error
	if errors.As(err, &re) {
		if re.Detail != "" {
			return re.Detail
		}
		// корневая причина без префиксов eris
		cause := re.Err
		for {
			next := errors.Unwrap(cause)
			if next == nil {
				break
			}
			cause = next
		}
		return cause.Error()
	}
	return err.Error()
}
