package export

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/cavena/mobility-cli/internal/model"
)

// WriteIsochroneShapefile writes the reachability polygons for GIS
// consumers, one record per polygon with its threshold and center.
func WriteIsochroneShapefile(path string, isos []model.IsochronePolygon) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	w.SetFields([]shp.Field{
		shp.FloatField("RANGE_KM", 8, 2),
		shp.StringField("CENTER", 80),
	})

	for _, iso := range isos {
		if iso.Geometry == nil || iso.Geometry.NumLinearRings() == 0 {
			continue
		}
		ring := iso.Geometry.LinearRing(0)
		points := make([]shp.Point, 0, ring.NumCoords())
		for i := 0; i < ring.NumCoords(); i++ {
			c := ring.Coord(i)
			points = append(points, shp.Point{X: c[0], Y: c[1]})
		}
		poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{points}))

		n := int(w.Write(&poly))
		if err := w.WriteAttribute(n, 0, iso.RangeKm); err != nil {
			return eris.Wrap(err, "export: write shapefile range attribute")
		}
		if err := w.WriteAttribute(n, 1, iso.CenterAddress); err != nil {
			return eris.Wrap(err, "export: write shapefile center attribute")
		}
	}
	return nil
}

// WritePointsShapefile writes departure and arrival points, mirroring
// the GeoJSON points collection.
func WritePointsShapefile(path string, trips []model.GeocodedTrip) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	w.SetFields([]shp.Field{
		shp.StringField("ID", 32),
		shp.StringField("TYPE", 8),
	})

	write := func(p model.GeoPoint, id, kind string) error {
		n := int(w.Write(&shp.Point{X: p.Lon, Y: p.Lat}))
		if err := w.WriteAttribute(n, 0, id); err != nil {
			return eris.Wrap(err, "export: write shapefile id attribute")
		}
		return eris.Wrap(w.WriteAttribute(n, 1, kind), "export: write shapefile type attribute")
	}

	for _, trip := range trips {
		if err := write(trip.StartPoint, trip.ID, "dep"); err != nil {
			return err
		}
		if err := write(trip.EndPoint, trip.ID, "arr"); err != nil {
			return err
		}
	}
	return nil
}
