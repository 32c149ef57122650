package forecast

import (
	"math"
	"testing"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarketFactors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []domain.MarketFactor
	}{
		{
			name: "bare array",
			in:   `[{"name":"Holiday season","impact":0.4,"description":"Gift demand"},{"name":"Competitor sale","impact":-0.2,"description":"Price pressure"}]`,
			want: []domain.MarketFactor{
				{Name: "Holiday season", Impact: 0.4, Description: "Gift demand"},
				{Name: "Competitor sale", Impact: -0.2, Description: "Price pressure"},
			},
		},
		{
			name: "code fence",
			in:   "```json\n[{\"name\":\"Back to school\",\"impact\":0.3,\"description\":\"\"}]\n```",
			want: []domain.MarketFactor{{Name: "Back to school", Impact: 0.3}},
		},
		{
			name: "wrapped object",
			in:   `{"factors":[{"name":"Inflation","impact":-0.1,"description":"Tighter budgets"}]}`,
			want: []domain.MarketFactor{{Name: "Inflation", Impact: -0.1, Description: "Tighter budgets"}},
		},
		{
			name: "surrounding prose",
			in:   "Here are the factors:\n[{\"name\":\"Trend\",\"impact\":0.2,\"description\":\"Viral\"}]\nHope this helps.",
			want: []domain.MarketFactor{{Name: "Trend", Impact: 0.2, Description: "Viral"}},
		},
		{
			name: "string impact and clamping",
			in:   `[{"name":"A","impact":"0.25"},{"name":"B","impact":3},{"name":"C","impact":-7.5},{"name":"D","impact":"high"},{"name":"E"}]`,
			want: []domain.MarketFactor{
				{Name: "A", Impact: 0.25},
				{Name: "B", Impact: 1},
				{Name: "C", Impact: -1},
				{Name: "D", Impact: 0},
				{Name: "E", Impact: 0},
			},
		},
		{
			name: "blank names skipped, factor alias accepted",
			in:   `[{"name":"  ","impact":0.5},{"factor":"Weather","impact":0.1,"description":"Cold snap"}]`,
			want: []domain.MarketFactor{{Name: "Weather", Impact: 0.1, Description: "Cold snap"}},
		},
		{
			name: "empty array",
			in:   `[]`,
			want: []domain.MarketFactor{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMarketFactors(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMarketFactors_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "no idea", `{"name":"x"}`, `[{"name": }]`, "42"} {
		_, err := ParseMarketFactors(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseDemand(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"120", 120},
		{"  75\n", 75},
		{"1,250 units", 1250},
		{"87.9", 87},
		{"300.", 300},
		{`"64"`, 64},
		{"```\n42\n```", 42},
		{"0", 0},
		{"-15", 0},
		{"+20", 20},
		{"99999999999", math.MaxInt32},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDemand(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDemand_NonNumeric(t *testing.T) {
	for _, in := range []string{"", "about forty", "Predicted demand: 40", "N/A", "-"} {
		_, err := ParseDemand(in)
		assert.ErrorIs(t, err, errNoDemandNumber, "input %q", in)
	}
}
