package inventory

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bloodbank/bloodbank/pkg/pagination"
)

const (
	exportSheet    = "Blood Units"
	exportDateForm = "2006-01-02 15:04"
)

var exportHeader = []string{
	"Unit ID", "Blood Group", "Component", "Collection Date", "Expiry Date",
	"Status", "Blood Bank", "Donor", "Donor Email",
}

var exportWidths = []float64{18, 12, 18, 18, 18, 12, 28, 24, 28}

// Export writes the units matching the filters to w as an XLSX workbook.
func (s *Service) Export(ctx context.Context, status, group string, w io.Writer) error {
	f, err := parseFilter(status, group)
	if err != nil {
		return err
	}
	units, _, err := s.units.List(ctx, f, pagination.Params{})
	if err != nil {
		return err
	}
	return writeWorkbook(units, w)
}

func writeWorkbook(units []*Unit, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F4CCCC"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, h := range exportHeader {
		if err := setCell(f, i+1, 1, h); err != nil {
			return err
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(exportSheet, col, col, exportWidths[i]); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	last, err := excelize.CoordinatesToCellName(len(exportHeader), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(exportSheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("set header style: %w", err)
	}

	for i, u := range units {
		row := i + 2
		var donor, donorEmail string
		if u.Donor != nil {
			donor = strings.TrimSpace(u.Donor.FirstName + " " + u.Donor.LastName)
			donorEmail = u.Donor.Email
		}
		values := []interface{}{
			u.UnitID, string(u.BloodGroup), string(u.ComponentType),
			u.CollectionDate.UTC().Format(exportDateForm), u.ExpiryDate.UTC().Format(exportDateForm),
			string(u.Status), u.BloodBank.Name, donor, donorEmail,
		}
		for col, v := range values {
			if err := setCell(f, col+1, row, v); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, v interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(exportSheet, cell, v); err != nil {
		return fmt.Errorf("set cell %s: %w", cell, err)
	}
	return nil
}
