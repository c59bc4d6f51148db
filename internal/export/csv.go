package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/cavena/mobility-cli/internal/model"
)

// analysisHeader matches the tabular record pushed to the sheet backend.
var analysisHeader = []string{
	"id", "start_lat", "start_lon", "end_lat", "end_lon",
	"distance_km", "duration_minutes", "status", "error",
}

// AnalysisRows flattens route results into the analysis table, one row
// per trip including failures. Failed trips carry empty distance and
// duration cells.
func AnalysisRows(routes []model.RouteResult) [][]string {
	rows := make([][]string, 0, len(routes)+1)
	rows = append(rows, analysisHeader)
	for _, r := range routes {
		distance, duration := "", ""
		if r.Status == model.RouteSuccess {
			distance = strconv.FormatFloat(r.DistanceKm, 'f', 2, 64)
			duration = strconv.Itoa(r.DurationMin)
		}
		rows = append(rows, []string{
			r.ID,
			strconv.FormatFloat(r.StartPoint.Lat, 'f', 6, 64),
			strconv.FormatFloat(r.StartPoint.Lon, 'f', 6, 64),
			strconv.FormatFloat(r.EndPoint.Lat, 'f', 6, 64),
			strconv.FormatFloat(r.EndPoint.Lon, 'f', 6, 64),
			distance,
			duration,
			string(r.Status),
			r.Error,
		})
	}
	return rows
}

// WriteAnalysisCSV writes the analysis table as CSV.
func WriteAnalysisCSV(w io.Writer, routes []model.RouteResult) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(AnalysisRows(routes)); err != nil {
		return eris.Wrap(err, "export: write analysis csv")
	}
	return nil
}
