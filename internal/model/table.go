package model

import (
	"strconv"
	"strings"
)

// Column is a canonical input column name. Header normalization happens in
// the sheet loader; everything downstream sees exactly these names.
type Column string

const (
	ColGroup     Column = "group_name"
	ColClient    Column = "client_name"
	ColSerial    Column = "Sr"
	ColCompany   Column = "Company"
	ColTicker    Column = "NSE ticker"
	ColAction    Column = "Reco."
	ColQuantity  Column = "Quantity"
	ColPrice     Column = "Approx. CMP ₹"
	ColValue     Column = "Approx. Value @CMP ₹ Lakh"
	ColOrderType Column = "Order Type"
)

// RecommendationColumns are required in tabular mode (besides ColGroup).
var RecommendationColumns = []Column{ColCompany, ColTicker, ColAction, ColQuantity, ColPrice, ColValue, ColOrderType}

// Number is a numeric cell that keeps its source text. Malformed or empty
// cells stay renderable through Raw.
type Number struct {
	Raw   string
	Value float64
	Valid bool
}

// ParseNumber never fails; unparsable input yields an invalid Number.
func ParseNumber(raw string) Number {
	s := strings.TrimSpace(raw)
	n := Number{Raw: s}
	if s == "" {
		return n
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return n
	}
	n.Value = v
	n.Valid = true
	return n
}

func NumberOf(v float64) Number {
	return Number{Raw: strconv.FormatFloat(v, 'f', -1, 64), Value: v, Valid: true}
}

func (n Number) String() string {
	if !n.Valid {
		return n.Raw
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// Recommendation carries the typed fields of one tabular row.
type Recommendation struct {
	Serial    string
	Company   string
	Ticker    string
	Action    Action
	Quantity  Number
	Price     Number
	Value     Number
	OrderType string
}

// Row is one validated input row. Reco is the zero value in broadcast mode.
type Row struct {
	Group      string
	ClientName string
	Reco       Recommendation
}

// Table is the validated input for one run.
type Table struct {
	Mode    Mode
	Columns map[Column]bool
	Rows    []Row
}

// Has reports whether the source carried the column at all.
func (t *Table) Has(c Column) bool {
	if t == nil {
		return false
	}
	return t.Columns[c]
}

// Reset drops the loaded rows. The table must not be used afterwards.
func (t *Table) Reset() {
	if t == nil {
		return
	}
	t.Rows = nil
}
