package yamlcatalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tile-microservice/internal/domain"
	"github.com/tile-microservice/internal/domain/repository"
)

const catalogYAML = `
connections:
  - id: 1
    name: local
    host: localhost
    database: gis
    username: gis
    password: gis
dataSources:
  - id: 1
    name: main
    defaultConnectionId: 1
layers:
  - id: 10
    name: Parcels
    code: SELECT geom, id, zone FROM parcels WHERE city = {{city}}
    geometryColumn: geom
    geometryKind: polygon
    visible: true
    maxZoom: 100
    dataSourceId: 1
    style:
      fillColor:
        column: zone
        type: categorical
      fillOpacity: 0.5
environments:
  - id: 1
    name: default
    variables:
      city: Lyon
    connections:
      1: 1
    subEnvironments:
      - id: 2
        name: paris
        variables:
          city: Paris
`

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	ctx := context.Background()

	layer, err := c.GetLayer(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.KindPolygon, layer.Kind)
	assert.Equal(t, []string{"zone"}, layer.Style.Columns())
	assert.True(t, layer.VisibleAt(10))

	conn, err := c.GetConnection(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "localhost", conn.Host)

	env, err := c.GetEnvironment(ctx, 1)
	require.NoError(t, err)
	vars, ok := env.ResolveVariables(2)
	require.True(t, ok)
	assert.Equal(t, "Paris", vars["city"])

	_, err = c.GetLayer(ctx, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestParseRejectsUnknownKind(t *testing.T) {
	_, err := Parse([]byte("layers:\n  - id: 1\n    geometryKind: raster\n"))
	assert.Error(t, err)
}
