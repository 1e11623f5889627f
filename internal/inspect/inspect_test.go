package inspect

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"pairCore/internal/scenario"
)

func runScenario(t *testing.T, script string) *scenario.Runner {
	t.Helper()
	ops, err := scenario.ParseOps(strings.NewReader(script))
	require.NoError(t, err)
	runner, err := scenario.NewRunner(scenario.Config{StartTime: 1_700_000_000})
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), ops)
	require.NoError(t, err)
	return runner
}

const seeded = `
{"op":"fund","token":0,"to":"pair","amount":"2000"}
{"op":"fund","token":1,"to":"pair","amount":"8000"}
{"op":"mint","caller":"router","to":"alice"}
`

func TestPairInSync(t *testing.T) {
	runner := runScenario(t, seeded)

	report, err := Pair(context.Background(), runner.Sim(), runner.Pair().Address())
	require.NoError(t, err)
	require.True(t, report.InSync)
	require.Equal(t, "2000", report.State.Reserve0)
	require.Equal(t, "8000", report.State.Reserve1)
	require.Equal(t, "4000", report.State.TotalSupply)
	require.Equal(t, runner.Pair().Token0().Hex(), report.State.Token0)
	require.Equal(t, "0", report.Drift0)
}

func TestPairSurplus(t *testing.T) {
	runner := runScenario(t, seeded+`{"op":"fund","token":1,"to":"pair","amount":"25"}`)

	report, err := Pair(context.Background(), runner.Sim(), runner.Pair().Address())
	require.NoError(t, err)
	require.False(t, report.InSync)
	require.Equal(t, "0", report.Drift0)
	require.Equal(t, "25", report.Drift1)
	require.Equal(t, "8025", report.Balance1)

	runner = runScenario(t, seeded+`
{"op":"fund","token":1,"to":"pair","amount":"25"}
{"op":"skim","caller":"router","to":"bob"}
`)
	report, err = Pair(context.Background(), runner.Sim(), runner.Pair().Address())
	require.NoError(t, err)
	require.True(t, report.InSync)
}

func TestPairWithoutCode(t *testing.T) {
	runner := runScenario(t, "")
	nobody, err := scenario.ResolveAccount("nobody")
	require.NoError(t, err)

	_, err = Pair(context.Background(), runner.Sim(), nobody)
	require.Error(t, err)
}
