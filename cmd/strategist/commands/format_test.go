package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/aegis-options/internal/contracts"
)

func TestFormatLegs(t *testing.T) {
	legs := []contracts.PositionLeg{
		{LegRef: contracts.LegRef{Sign: contracts.Long}, Kind: contracts.Call, Strike: 95},
		{LegRef: contracts.LegRef{Sign: contracts.Short}, Kind: contracts.Put, Strike: 100.5},
	}
	assert.Equal(t, "+C95 -P100.5", FormatLegs(legs))
	assert.Equal(t, "", FormatLegs(nil))
}

func TestFormatBreakevens(t *testing.T) {
	assert.Equal(t, "-", FormatBreakevens(nil))
	assert.Equal(t, "96.00/104.00", FormatBreakevens([]float64{96, 104}))
}

func TestPrintRanking(t *testing.T) {
	var buf bytes.Buffer
	PrintRanking(&buf, []contracts.StrategyResult{{
		Legs:       []contracts.PositionLeg{{LegRef: contracts.LegRef{Sign: contracts.Long}, Kind: contracts.Call, Strike: 100}},
		Score:      0.75,
		Rank:       1,
		Breakevens: []float64{102.5},
	}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Rank"))
	assert.Contains(t, lines[2], "+C100")
	assert.Contains(t, lines[2], "0.7500")
	assert.Contains(t, lines[2], "102.50")
}

func TestValidateConfigCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"validate-config", "--strategy", "../../../config/strategy.yaml"})

	assert.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "index_weekly_v1")
	assert.Contains(t, buf.String(), "is valid")
}
