// Package sheet loads the spreadsheet input of a run into a model.Table.
//
// Headers are matched after trimming. The two accepted spellings of the
// value column are folded into model.ColValue here so nothing downstream
// has to know about them.
package sheet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"recobot/internal/model"
	logx "recobot/pkg/logx"
)

var (
	ErrNoSheet  = errors.New("workbook has no sheets")
	ErrNoHeader = errors.New("sheet has no header row")
)

// MissingColumnsError lists required columns absent from the header row.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "Missing required columns: " + strings.Join(e.Columns, ", ")
}

// headerAliases maps accepted header spellings to canonical columns.
var headerAliases = map[string]model.Column{
	"Approx. Value @CMP ₹ Lakhs": model.ColValue,
}

func canonical(h string) model.Column {
	h = strings.TrimSpace(h)
	if c, ok := headerAliases[h]; ok {
		return c
	}
	return model.Column(h)
}

// Load reads the first sheet of the workbook at path.
func Load(path string, mode model.Mode, log logx.Logger) (*model.Table, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.Comp("sheet"))

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return FromRows(rows, mode, log)
}

// FromRows builds a table from a header row followed by data rows.
func FromRows(rows [][]string, mode model.Mode, log logx.Logger) (*model.Table, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	index := map[model.Column]int{}
	for i, h := range rows[0] {
		c := canonical(h)
		if c == "" {
			continue
		}
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}

	if err := validate(index, mode, log); err != nil {
		return nil, err
	}

	t := &model.Table{Mode: mode, Columns: map[model.Column]bool{}}
	for c := range index {
		t.Columns[c] = true
	}

	cell := func(row []string, c model.Column) string {
		i, ok := index[c]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		r := model.Row{
			Group:      cell(row, model.ColGroup),
			ClientName: cell(row, model.ColClient),
		}
		if mode == model.ModeTabular {
			r.Reco = model.Recommendation{
				Serial:    cell(row, model.ColSerial),
				Company:   cell(row, model.ColCompany),
				Ticker:    cell(row, model.ColTicker),
				Action:    model.Action(cell(row, model.ColAction)),
				Quantity:  model.ParseNumber(cell(row, model.ColQuantity)),
				Price:     model.ParseNumber(cell(row, model.ColPrice)),
				Value:     model.ParseNumber(cell(row, model.ColValue)),
				OrderType: cell(row, model.ColOrderType),
			}
		}
		t.Rows = append(t.Rows, r)
	}
	log.Debug("sheet loaded", logx.String("mode", string(mode)), logx.Int("rows", len(t.Rows)))
	return t, nil
}

func validate(index map[model.Column]int, mode model.Mode, log logx.Logger) error {
	required := []model.Column{model.ColGroup}
	switch mode {
	case model.ModeTabular:
		required = append(required, model.RecommendationColumns...)
	case model.ModeBroadcast:
		extra := 0
		for c := range index {
			if c != model.ColGroup && c != model.ColClient {
				extra++
			}
		}
		if extra > 0 {
			log.Warn("extra columns ignored in broadcast mode", logx.Int("count", extra))
		}
		if _, ok := index[model.ColClient]; !ok {
			log.Info("no client_name column; default greeting will be used")
		}
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	var missing []string
	for _, c := range required {
		if _, ok := index[c]; !ok {
			missing = append(missing, string(c))
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
