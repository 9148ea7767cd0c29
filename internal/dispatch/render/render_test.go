package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recobot/internal/model"
)

func fullColumns() *model.Table {
	cols := map[model.Column]bool{model.ColGroup: true, model.ColClient: true}
	for _, c := range model.RecommendationColumns {
		cols[c] = true
	}
	return &model.Table{Mode: model.ModeTabular, Columns: cols}
}

func acme() model.Recommendation {
	return model.Recommendation{
		Company:   "Acme",
		Ticker:    "ACM",
		Action:    "BUY",
		Quantity:  model.NumberOf(10),
		Price:     model.NumberOf(100),
		Value:     model.NumberOf(1),
		OrderType: "Market",
	}
}

func TestNarrativeTestGroupScenario(t *testing.T) {
	opts := DefaultOptions()
	u := model.Unit{Group: model.Group{Name: "Alpha Testing"}, Rows: []model.Recommendation{acme()}}

	body, err := Recommendations(opts, u, fullColumns(), model.FormatNarrative)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(body, "[TEST MODE] Dear Client,"))
	assert.Contains(t, body, "*BUY RECOMMENDATIONS:*")
	assert.NotContains(t, body, "*SELL RECOMMENDATIONS:*")
	assert.Equal(t, 1, strings.Count(body, "*Acme (ACM)*"))
	assert.Contains(t, body, "• Quantity: 10\n• CMP: Rs.100\n• Value: Rs.1 Lakh\n• Order Type: Market")
	assert.True(t, strings.HasSuffix(body, "\n\n[THIS IS A TEST MESSAGE - PLEASE IGNORE]"))
}

func TestNarrativeExactBody(t *testing.T) {
	u := model.Unit{Group: model.Group{Name: "Family", ClientName: "Ravi"}, Rows: []model.Recommendation{acme()}}
	body, err := Recommendations(DefaultOptions(), u, fullColumns(), model.FormatNarrative)
	require.NoError(t, err)

	want := "Dear Ravi,\n\nHere are your stock recommendations:\n" +
		"\n*BUY RECOMMENDATIONS:*\n" +
		"\n*Acme (ACM)*\n• Quantity: 10\n• CMP: Rs.100\n• Value: Rs.1 Lakh\n• Order Type: Market\n-------------------" +
		"\n\n*Note:* Please execute orders as early as you can."
	assert.Equal(t, want, body)
}

func TestTestMarkerProperty(t *testing.T) {
	opts := DefaultOptions()
	cases := []struct {
		name string
		test bool
	}{
		{"Alpha Testing", true},
		{"TESTING desk", true},
		{"pre-testing-group", true},
		{"Alpha", false},
		{"Test group", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := model.Unit{Group: model.Group{Name: tc.name}, Rows: []model.Recommendation{acme()}}
			for _, f := range []model.Format{model.FormatTable, model.FormatNarrative} {
				body, err := Recommendations(opts, u, fullColumns(), f)
				require.NoError(t, err)
				assert.Equal(t, tc.test, strings.Contains(body, opts.TestMarker), "marker, format %s", f)
				assert.Equal(t, tc.test, strings.Contains(body, opts.TestDisclaimer), "disclaimer, format %s", f)
			}
			body, err := Broadcast(opts, u, "hello")
			require.NoError(t, err)
			assert.Equal(t, tc.test, strings.HasPrefix(body, opts.TestMarker))
			assert.Equal(t, tc.test, strings.HasSuffix(body, opts.TestDisclaimer))
		})
	}
}

func TestNarrativePartitionsByAction(t *testing.T) {
	rows := []model.Recommendation{
		{Company: "B1", Ticker: "B1", Action: "buy"},
		{Company: "S1", Ticker: "S1", Action: "SELL"},
		{Company: "H1", Ticker: "H1", Action: "HOLD"},
		{Company: "B2", Ticker: "B2", Action: " Buy "},
		{Company: "S2", Ticker: "S2", Action: "sell"},
	}
	u := model.Unit{Group: model.Group{Name: "G"}, Rows: rows}
	body, err := Recommendations(DefaultOptions(), u, fullColumns(), model.FormatNarrative)
	require.NoError(t, err)

	assert.Equal(t, 4, strings.Count(body, rowSeparator))
	assert.NotContains(t, body, "H1")

	buyAt := strings.Index(body, buySectionHead)
	sellAt := strings.Index(body, sellSectionHead)
	require.True(t, buyAt >= 0 && sellAt > buyAt)
	buySection := body[buyAt:sellAt]
	sellSection := body[sellAt:]
	assert.Contains(t, buySection, "*B1 (B1)*")
	assert.Contains(t, buySection, "*B2 (B2)*")
	assert.Contains(t, sellSection, "*S1 (S1)*")
	assert.Contains(t, sellSection, "*S2 (S2)*")
	assert.Less(t, strings.Index(buySection, "B1"), strings.Index(buySection, "B2"))
}

func TestNarrativeSectionsOmittedWhenEmpty(t *testing.T) {
	u := model.Unit{Group: model.Group{Name: "G"}, Rows: []model.Recommendation{{Company: "X", Action: "HOLD"}}}
	body, err := Recommendations(DefaultOptions(), u, fullColumns(), model.FormatNarrative)
	require.NoError(t, err)
	assert.NotContains(t, body, "RECOMMENDATIONS:*")
	assert.NotContains(t, body, rowSeparator)
}

func TestTableLayoutMissingFieldsRenderEmpty(t *testing.T) {
	rows := []model.Recommendation{
		{Serial: "1", Company: "Acme", Ticker: "ACM", Action: "BUY", Quantity: model.NumberOf(5), Price: model.ParseNumber("12.50"), Value: model.ParseNumber("n/a"), OrderType: "Limit"},
		{Company: "Bare"},
	}
	u := model.Unit{Group: model.Group{Name: "G"}, Rows: rows}
	body, err := Recommendations(DefaultOptions(), u, &model.Table{}, model.FormatTable)
	require.NoError(t, err)

	lines := strings.Split(body, "\n")
	assert.Contains(t, lines, tableHeader)
	assert.Contains(t, lines, tableRule)
	assert.Contains(t, lines, "1 | Acme | ACM | BUY | 5 | 12.5 | n/a | Limit")
	assert.Contains(t, lines, " | Bare |  |  |  |  |  | ")
}

func TestNarrativeWithoutActionColumnIsRenderError(t *testing.T) {
	u := model.Unit{Group: model.Group{Name: "G"}, Rows: []model.Recommendation{acme()}}
	_, err := Recommendations(DefaultOptions(), u, &model.Table{Columns: map[model.Column]bool{model.ColGroup: true}}, model.FormatNarrative)

	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "G", rerr.Group)
	assert.ErrorIs(t, err, ErrMissingActionColumn)
}

func TestRenderingIsDeterministic(t *testing.T) {
	u := model.Unit{Group: model.Group{Name: "Desk testing", ClientName: "Mia"}, Rows: []model.Recommendation{
		acme(),
		{Company: "Beta", Ticker: "BET", Action: "SELL", Quantity: model.ParseNumber("3"), Price: model.ParseNumber(""), OrderType: "Limit"},
	}}
	for _, f := range []model.Format{model.FormatTable, model.FormatNarrative} {
		first, err := Recommendations(DefaultOptions(), u, fullColumns(), f)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := Recommendations(DefaultOptions(), u, fullColumns(), f)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	}
}

func TestBroadcastBody(t *testing.T) {
	u := model.Unit{Group: model.Group{Name: "Clients A", ClientName: "Ann"}}
	body, err := Broadcast(DefaultOptions(), u, "Markets closed tomorrow.\nSee you Monday.")
	require.NoError(t, err)
	assert.Equal(t, "Dear Ann,\n\nMarkets closed tomorrow.\nSee you Monday.", body)

	other, err := Broadcast(DefaultOptions(), model.Unit{Group: model.Group{Name: "Clients B"}}, "Markets closed tomorrow.\nSee you Monday.")
	require.NoError(t, err)
	assert.Equal(t, "Dear Client,\n\nMarkets closed tomorrow.\nSee you Monday.", other)

	_, err = Broadcast(DefaultOptions(), u, "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
}
