package domain

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

const DefaultPostgresPort = 5432

// Connection - параметры подключения к удаленной PostGIS базе
type Connection struct {
	ID             int64  `json:"id" db:"id" yaml:"id"`
	Name           string `json:"name" db:"name" yaml:"name"`
	Host           string `json:"host" db:"host" yaml:"host" validate:"required"`
	Port           int    `json:"port" db:"port" yaml:"port"`
	Database       string `json:"database" db:"database" yaml:"database" validate:"required"`
	Username       string `json:"username" db:"username" yaml:"username"`
	Password       string `json:"password" db:"password" yaml:"password"`
	SSL            bool   `json:"ssl" db:"ssl" yaml:"ssl"`
	MaxConnections int    `json:"maxConnections" db:"max_connections" yaml:"maxConnections"`
	DataSourceID   int64  `json:"dataSourceId" db:"data_source_id" yaml:"dataSourceId"`
}

// EffectivePort возвращает порт с учетом значения по умолчанию
func (c Connection) EffectivePort() int {
	if c.Port <= 0 {
		return DefaultPostgresPort
	}
	return c.Port
}

// ConnString собирает postgres:// URL. При SSL сертификат сервера не проверяется.
func (c Connection) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.EffectivePort())),
		Path:   "/" + c.Database,
	}
	if c.Username != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}

	q := url.Values{}
	if c.SSL {
		q.Set("sslmode", "require")
	} else {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// String не раскрывает пароль
func (c Connection) String() string {
	return fmt.Sprintf("connection(%d %s@%s:%d/%s)", c.ID, c.Username, c.Host, c.EffectivePort(), c.Database)
}

// DataSource - именованная группа подключений
type DataSource struct {
	ID                  int64  `json:"id" db:"id" yaml:"id"`
	Name                string `json:"name" db:"name" yaml:"name"`
	DefaultConnectionID int64  `json:"defaultConnectionId" db:"default_connection_id" yaml:"defaultConnectionId"`
}
