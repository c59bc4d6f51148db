package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/cavena/mobility-cli/internal/analytics"
	"github.com/cavena/mobility-cli/internal/model"
)

// WriteWorkbook writes the audit workbook: an analysis sheet with one
// row per trip and a synthesis sheet with the distributions and
// narratives.
func WriteWorkbook(path, siteName, city string, routes []model.RouteResult, report analytics.Report) error {
	f := xlsx.NewFile()

	analysis, err := f.AddSheet("Analyse")
	if err != nil {
		return eris.Wrap(err, "export: add analysis sheet")
	}
	for _, row := range AnalysisRows(routes) {
		r := analysis.AddRow()
		for _, cell := range row {
			r.AddCell().Value = cell
		}
	}

	synthesis, err := f.AddSheet("Synthèse")
	if err != nil {
		return eris.Wrap(err, "export: add synthesis sheet")
	}
	header := synthesis.AddRow()
	header.AddCell().Value = "Site"
	header.AddCell().Value = siteName
	header.AddCell().Value = city

	writeDistribution(synthesis, "Distances", report.Distance)
	writeDistribution(synthesis, "Temps", report.Duration)
	writeDistribution(synthesis, "Temps VAE", report.EBikeDuration)

	synthesis.AddRow()
	narr := synthesis.AddRow()
	narr.AddCell().Value = "Analyse géographique"
	narr.AddCell().Value = report.DistanceNarrative
	narr = synthesis.AddRow()
	narr.AddCell().Value = "Projection VAE"
	narr.AddCell().Value = report.EBikeNarrative

	return eris.Wrapf(f.Save(path), "export: save workbook %s", path)
}

func writeDistribution(sheet *xlsx.Sheet, title string, d analytics.Distribution) {
	sheet.AddRow()
	t := sheet.AddRow()
	t.AddCell().Value = title
	for _, b := range d.Buckets {
		r := sheet.AddRow()
		r.AddCell().Value = b.Label
		r.AddCell().SetInt(b.Count)
		r.AddCell().SetFloatWithFormat(b.Percent, "0.0")
	}
}
