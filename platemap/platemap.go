// Package platemap loads the plate designation files that say which wells
// are controls, and the block files that split a plate into groups.
package platemap

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/carbocation/histdiff"
	"github.com/carbocation/histdiff/plate"
	"github.com/carbocation/pfx"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ReferenceLabel marks a control well in the label column. It is matched
// case-insensitively.
const ReferenceLabel = "REFERENCE"

const (
	DefaultWellColumn  = "384_Well"
	DefaultLabelColumn = "sample_type"
)

// PlateMap is the well layout of one plate.
type PlateMap struct {
	// Wells lists every canonical well of the map in file order, once.
	Wells []string

	// Controls lists the canonical control wells in file order, once.
	Controls []string

	// Labels maps each well to the label of its last row.
	Labels map[string]string
}

// Universe returns the wells to read from the cell table. A map that names
// exactly 384 wells is taken to be the standard 384-well plate.
func (p *PlateMap) Universe() *plate.Universe {
	if len(p.Wells) == plate.Default().Len() {
		return plate.Default()
	}

	return plate.NewUniverse(p.Wells)
}

// Load reads a plate map. Files ending in .xls or .xlsx are read from their
// first sheet; anything else is read as delimited text with the delimiter
// detected from the content.
func Load(path, wellCol, labelCol string) (*PlateMap, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xls":
		rows, err = readXLS(path)
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		rows, err = readDelimited(path)
	}
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	pm, err := FromRows(rows, wellCol, labelCol)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return pm, nil
}

// FromRows builds a plate map from a header row followed by data rows.
func FromRows(rows [][]string, wellCol, labelCol string) (*PlateMap, error) {
	if len(rows) < 1 {
		return nil, fmt.Errorf("plate map has no header row")
	}

	wellIdx, labelIdx := -1, -1
	for i, v := range rows[0] {
		switch strings.TrimSpace(v) {
		case wellCol:
			wellIdx = i
		case labelCol:
			labelIdx = i
		}
	}
	if wellIdx < 0 {
		return nil, fmt.Errorf("plate map is missing the well column %q", wellCol)
	}
	if labelIdx < 0 {
		return nil, fmt.Errorf("plate map is missing the label column %q", labelCol)
	}

	pm := &PlateMap{Labels: make(map[string]string)}
	isControl := make(map[string]struct{})
	for _, row := range rows[1:] {
		if wellIdx >= len(row) {
			continue
		}
		well := plate.Canonical(strings.ToUpper(row[wellIdx]))
		if well == "" {
			continue
		}

		label := ""
		if labelIdx < len(row) {
			label = strings.TrimSpace(row[labelIdx])
		}

		if _, seen := pm.Labels[well]; !seen {
			pm.Wells = append(pm.Wells, well)
		}
		pm.Labels[well] = label

		if strings.EqualFold(label, ReferenceLabel) {
			if _, dup := isControl[well]; !dup {
				isControl[well] = struct{}{}
				pm.Controls = append(pm.Controls, well)
			}
		}
	}

	return pm, nil
}

func readDelimited(path string) ([][]string, error) {
	data, err := histdiff.ReadAll(context.Background(), path, nil)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = histdiff.DetermineDelimiterBytes(data)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	return r.ReadAll()
}

func readXLS(path string) ([][]string, error) {
	spreadsheet, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, err
	}

	if spreadsheet.NumSheets() < 1 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := spreadsheet.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("sheet 0 was nil")
	}

	var out [][]string
	for rowID := 0; rowID <= int(sheet.MaxRow); rowID++ {
		row := sheet.Row(rowID)
		if row == nil {
			continue
		}

		values := make([]string, 0, row.LastCol()+1)
		for colID := 0; colID <= row.LastCol(); colID++ {
			values = append(values, row.Col(colID))
		}
		out = append(out, values)
	}

	return out, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) < 1 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	return f.GetRows(sheets[0])
}
