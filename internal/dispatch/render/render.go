// Package render turns delivery units into message bodies.
//
// Rendering is pure: the same unit, columns, format and options always give
// byte-identical output. Bodies use "\n" line breaks; the browser driver
// turns them into explicit line-break keystrokes.
package render

import (
	"errors"
	"fmt"
	"strings"

	"recobot/internal/model"
)

// Options are the fixed texts around a rendered body.
type Options struct {
	// TestSubstring marks a group as a test group (case-insensitive match).
	TestSubstring  string
	TestMarker     string
	TestDisclaimer string
	DefaultClient  string
	ClosingNote    string
}

func DefaultOptions() Options {
	return Options{
		TestSubstring:  "testing",
		TestMarker:     "[TEST MODE] ",
		TestDisclaimer: "[THIS IS A TEST MESSAGE - PLEASE IGNORE]",
		DefaultClient:  "Client",
		ClosingNote:    "*Note:* Please execute orders as early as you can.",
	}
}

// Error is a structural rendering failure, raised before any UI interaction.
type Error struct {
	Group string
	Err   error
}

func (e *Error) Error() string { return fmt.Sprintf("render %q: %v", e.Group, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

var (
	ErrMissingActionColumn = errors.New("narrative layout requires the action column")
	ErrEmptyText           = errors.New("broadcast text is empty")
)

const (
	tableHeader     = "Sr | Company | NSE ticker | Reco. | Quantity | Approx. CMP Rs. | Approx. Value @ CMP Rs. Lakh | Order Type"
	tableRule       = "---|---------|------------|--------|----------|----------------|---------------------------|------------"
	rowSeparator    = "-------------------"
	recoIntroLine   = "Here are your stock recommendations:"
	buySectionHead  = "*BUY RECOMMENDATIONS:*"
	sellSectionHead = "*SELL RECOMMENDATIONS:*"
)

// IsTestGroup reports whether name contains the reserved test substring.
func IsTestGroup(opts Options, name string) bool {
	sub := strings.ToLower(strings.TrimSpace(opts.TestSubstring))
	if sub == "" {
		return false
	}
	return strings.Contains(strings.ToLower(name), sub)
}

func greeting(opts Options, g model.Group) string {
	prefix := ""
	if IsTestGroup(opts, g.Name) {
		prefix = opts.TestMarker
	}
	return prefix + "Dear " + g.DisplayName(opts.DefaultClient) + ","
}

func withDisclaimer(opts Options, g model.Group, b *strings.Builder) {
	if IsTestGroup(opts, g.Name) {
		b.WriteString("\n\n")
		b.WriteString(opts.TestDisclaimer)
	}
}

// Recommendations renders a tabular-mode unit. columns is the source table,
// consulted only for structural presence of required columns.
func Recommendations(opts Options, u model.Unit, columns *model.Table, format model.Format) (string, error) {
	var b strings.Builder
	b.WriteString(greeting(opts, u.Group))
	b.WriteString("\n\n")
	b.WriteString(recoIntroLine)
	b.WriteString("\n")

	switch format {
	case model.FormatTable:
		writeTable(&b, u.Rows)
	case model.FormatNarrative:
		if !columns.Has(model.ColAction) {
			return "", &Error{Group: u.Group.Name, Err: ErrMissingActionColumn}
		}
		writeNarrative(&b, u.Rows)
	default:
		return "", &Error{Group: u.Group.Name, Err: fmt.Errorf("unknown format %q", format)}
	}

	if opts.ClosingNote != "" {
		b.WriteString("\n\n")
		b.WriteString(opts.ClosingNote)
	}
	withDisclaimer(opts, u.Group, &b)
	return b.String(), nil
}

func writeTable(b *strings.Builder, rows []model.Recommendation) {
	b.WriteString(tableHeader)
	b.WriteString("\n")
	b.WriteString(tableRule)
	b.WriteString("\n")
	for _, r := range rows {
		cells := []string{
			r.Serial,
			r.Company,
			r.Ticker,
			string(r.Action),
			r.Quantity.String(),
			r.Price.String(),
			r.Value.String(),
			r.OrderType,
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
}

func writeNarrative(b *strings.Builder, rows []model.Recommendation) {
	var buys, sells []model.Recommendation
	for _, r := range rows {
		switch r.Action.Kind() {
		case model.ActionBuy:
			buys = append(buys, r)
		case model.ActionSell:
			sells = append(sells, r)
		}
	}
	writeSection(b, buySectionHead, buys)
	writeSection(b, sellSectionHead, sells)
}

func writeSection(b *strings.Builder, head string, rows []model.Recommendation) {
	if len(rows) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(head)
	b.WriteString("\n")
	for _, r := range rows {
		fmt.Fprintf(b, "\n*%s (%s)*", r.Company, r.Ticker)
		fmt.Fprintf(b, "\n• Quantity: %s", r.Quantity)
		fmt.Fprintf(b, "\n• CMP: Rs.%s", r.Price)
		fmt.Fprintf(b, "\n• Value: Rs.%s Lakh", r.Value)
		fmt.Fprintf(b, "\n• Order Type: %s", r.OrderType)
		b.WriteString("\n")
		b.WriteString(rowSeparator)
	}
}

// Broadcast renders a broadcast-mode unit. Only the greeting varies per group.
func Broadcast(opts Options, u model.Unit, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &Error{Group: u.Group.Name, Err: ErrEmptyText}
	}
	var b strings.Builder
	b.WriteString(greeting(opts, u.Group))
	b.WriteString("\n\n")
	b.WriteString(text)
	withDisclaimer(opts, u.Group, &b)
	return b.String(), nil
}
