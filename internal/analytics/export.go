package analytics

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	dailySheet   = "Daily"
)

// WriteXLSX renders r as a workbook with a Summary and a Daily sheet
func WriteXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return errors.Wrap(err, "rename summary sheet")
	}
	revenue, _ := r.Summary.TotalRevenue.Float64()
	summaryRows := [][]interface{}{
		{"Metric", "Value"},
		{"Users", r.Summary.Users},
		{"Products", r.Summary.Products},
		{"Total sales", r.Summary.TotalSales},
		{"Total revenue", revenue},
		{"Mean daily revenue", r.Trend.Mean},
		{"Median daily revenue", r.Trend.Median},
		{"Peak daily revenue", r.Trend.Peak},
		{"Peak day", r.Trend.PeakDate},
	}
	if err := writeRows(f, summarySheet, summaryRows); err != nil {
		return err
	}

	if _, err := f.NewSheet(dailySheet); err != nil {
		return errors.Wrap(err, "create daily sheet")
	}
	dailyRows := make([][]interface{}, 0, len(r.Daily)+1)
	dailyRows = append(dailyRows, []interface{}{"Date", "Sales", "Revenue"})
	for _, p := range r.Daily {
		v, _ := p.Revenue.Float64()
		dailyRows = append(dailyRows, []interface{}{p.Date, p.Sales, v})
	}
	if err := writeRows(f, dailySheet, dailyRows); err != nil {
		return err
	}

	return errors.Wrap(f.Write(w), "write workbook")
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.WithStack(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "write %s row %d", sheet, i+1)
		}
	}
	return nil
}
