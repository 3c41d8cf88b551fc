// Package yamlcatalog - хранилище метаданных для headless развертываний: слои,
// подключения и окружения описываются одним YAML файлом.
package yamlcatalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/domain/repository"
)

type layerEntry struct {
	domain.Layer `yaml:",inline"`
	Style        map[string]any `yaml:"style"`
}

type file struct {
	Connections  []domain.Connection  `yaml:"connections"`
	DataSources  []domain.DataSource  `yaml:"dataSources"`
	Layers       []layerEntry         `yaml:"layers"`
	Environments []domain.Environment `yaml:"environments"`
}

// Catalog - неизменяемый каталог, загруженный из файла
type Catalog struct {
	layers       map[int64]*domain.Layer
	connections  map[int64]*domain.Connection
	dataSources  map[int64]*domain.DataSource
	environments map[int64]*domain.Environment
}

var _ repository.MetadataRepository = (*Catalog)(nil)

// Load читает каталог из файла
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read catalog %s", path)
	}
	return Parse(data)
}

// Parse разбирает каталог и проверяет типы геометрий и стили слоев
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "parse catalog")
	}

	c := &Catalog{
		layers:       make(map[int64]*domain.Layer, len(f.Layers)),
		connections:  make(map[int64]*domain.Connection, len(f.Connections)),
		dataSources:  make(map[int64]*domain.DataSource, len(f.DataSources)),
		environments: make(map[int64]*domain.Environment, len(f.Environments)),
	}

	for i := range f.Connections {
		conn := f.Connections[i]
		c.connections[conn.ID] = &conn
	}
	for i := range f.DataSources {
		ds := f.DataSources[i]
		c.dataSources[ds.ID] = &ds
	}
	for i := range f.Environments {
		env := f.Environments[i]
		c.environments[env.ID] = &env
	}
	for i := range f.Layers {
		entry := f.Layers[i]
		layer := entry.Layer
		if !layer.Kind.Valid() {
			return nil, fmt.Errorf("layer %d: unknown geometry kind %q", layer.ID, layer.Kind)
		}
		raw, err := json.Marshal(entry.Style)
		if err != nil {
			return nil, eris.Wrapf(err, "layer %d style", layer.ID)
		}
		style, err := domain.ParseStyle(layer.Kind, raw)
		if err != nil {
			return nil, eris.Wrapf(err, "layer %d", layer.ID)
		}
		layer.Style = style
		c.layers[layer.ID] = &layer
	}

	return c, nil
}

func (c *Catalog) GetLayer(_ context.Context, id int64) (*domain.Layer, error) {
	l, ok := c.layers[id]
	if !ok {
		return nil, eris.Wrapf(repository.ErrNotFound, "layer %d", id)
	}
	cp := *l
	return &cp, nil
}

func (c *Catalog) GetConnection(_ context.Context, id int64) (*domain.Connection, error) {
	conn, ok := c.connections[id]
	if !ok {
		return nil, eris.Wrapf(repository.ErrNotFound, "connection %d", id)
	}
	cp := *conn
	return &cp, nil
}

func (c *Catalog) GetDataSource(_ context.Context, id int64) (*domain.DataSource, error) {
	ds, ok := c.dataSources[id]
	if !ok {
		return nil, eris.Wrapf(repository.ErrNotFound, "data source %d", id)
	}
	cp := *ds
	return &cp, nil
}

func (c *Catalog) GetEnvironment(_ context.Context, id int64) (*domain.Environment, error) {
	env, ok := c.environments[id]
	if !ok {
		return nil, eris.Wrapf(repository.ErrNotFound, "environment %d", id)
	}
	cp := *env
	return &cp, nil
}

func (c *Catalog) Close() error {
	return nil
}
