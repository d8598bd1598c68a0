package report

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const utilizationFixture = `
+----------------------------+-------+-------+------------+-----------+-------+
|          Site Type         |  Used | Fixed | Prohibited | Available | Util% |
+----------------------------+-------+-------+------------+-----------+-------+
| Slice LUTs                 |  4521 |     0 |          0 |     53200 |  8.50 |
| Slice Registers            |  6210 |     0 |          0 |    106400 |  5.84 |
| Block RAM Tile             |    12 |     0 |          0 |       140 |  8.57 |
| DSPs                       |     8 |     0 |          0 |       220 |  3.64 |
| Bonded IOB                 |    45 |    45 |          0 |       125 | 36.00 |
+----------------------------+-------+-------+------------+-----------+-------+
`

func TestParseUtilization(t *testing.T) {
	u := ParseUtilization(utilizationFixture)

	require.NotNil(t, u.LUT)
	require.InDelta(t, 4521, u.LUT.Used, 1e-9)
	require.InDelta(t, 53200, u.LUT.Available, 1e-9)
	require.InDelta(t, 8.50, u.LUT.Percent, 1e-9)

	require.NotNil(t, u.FF)
	require.InDelta(t, 6210, u.FF.Used, 1e-9)

	require.NotNil(t, u.BRAM)
	require.NotNil(t, u.DSP)
	require.NotNil(t, u.IO)
	require.InDelta(t, 36.00, u.IO.Percent, 1e-9)

	require.False(t, u.Incomplete)
}

func TestParseUtilizationUltraScaleLabels(t *testing.T) {
	raw := `| CLB LUTs | 1000 | 0 | 230400 | 0.43 |
| CLB Registers | 2000 | 0 | 460800 | 0.43 |`
	u := ParseUtilization(raw)

	require.NotNil(t, u.LUT, "CLB LUTs is an accepted alternate label")
	require.InDelta(t, 1000, u.LUT.Used, 1e-9)
	require.NotNil(t, u.FF)
	require.True(t, u.Incomplete, "rows absent from the report leave the parse incomplete")
}

func TestParseUtilizationPartialReport(t *testing.T) {
	raw := "| Slice LUTs | 100 | 0 | 0 | 53200 | 0.19 |"
	u := ParseUtilization(raw)

	require.NotNil(t, u.LUT)
	require.Nil(t, u.BRAM, "absent resource stays nil, never a fabricated zero")
	require.True(t, u.Incomplete)
}

func TestParseUtilizationGarbage(t *testing.T) {
	u := ParseUtilization("nothing tabular here")
	require.Nil(t, u.LUT)
	require.True(t, u.Incomplete)
	require.NotEmpty(t, u.Raw)
}
