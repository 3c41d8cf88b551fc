package export

import (
	"github.com/paulmach/orb/geojson"

	"github.com/tile-microservice/internal/domain"
)

// GeoJSON - FeatureCollection, _qid попадает в id объекта
func GeoJSON(features []Feature) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		gf := geojson.NewFeature(f.Geometry)
		if f.ID != "" {
			gf.ID = f.ID
			gf.Properties[domain.IdentityColumn] = f.ID
		}
		for k, v := range f.Properties {
			gf.Properties[k] = v
		}
		fc.Append(gf)
	}
	return fc.MarshalJSON()
}
