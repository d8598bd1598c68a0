package report

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseObjectList(t *testing.T) {
	objects := ParseObjectList("clk rst_n data_in[7:0] valid_out count[3]", "port")

	require.Len(t, objects, 5)
	require.Equal(t, "clk", objects[0].Name)
	require.Equal(t, "port", objects[0].Type)
	require.Nil(t, objects[0].Width, "scalar objects carry no width")

	require.Equal(t, "data_in[7:0]", objects[2].Name)
	require.NotNil(t, objects[2].Width)
	require.Equal(t, 8, *objects[2].Width)

	require.NotNil(t, objects[4].Width)
	require.Equal(t, 1, *objects[4].Width, "single-bit index suffix is width one")
}

func TestParseObjectListReversedRange(t *testing.T) {
	objects := ParseObjectList("bus[0:7]", "net")
	require.Len(t, objects, 1)
	require.NotNil(t, objects[0].Width)
	require.Equal(t, 8, *objects[0].Width)
}

func TestParseObjectListEmpty(t *testing.T) {
	require.Empty(t, ParseObjectList("  \n ", "cell"))
}

const clocksFixture = `
Clock Report

Clock          Period(ns)  Waveform(ns)     Attributes  Sources
clk_main       10.000      {0.000 5.000}    P           {clk_pin}
clk_io         8.000       {0.000 4.000}    P,G         {u_mmcm/CLKOUT0}
`

func TestParseClocks(t *testing.T) {
	list := ParseClocks(clocksFixture)

	require.Len(t, list.Clocks, 2)
	require.False(t, list.Incomplete)

	clk := list.Clocks[0]
	require.Equal(t, "clk_main", clk.Name)
	require.NotNil(t, clk.PeriodNs)
	require.InDelta(t, 10.0, *clk.PeriodNs, 1e-9)
	require.Equal(t, []float64{0.0, 5.0}, clk.WaveformNs)
	require.Equal(t, []string{"clk_pin"}, clk.Sources)
}

func TestParseClocksGarbage(t *testing.T) {
	list := ParseClocks("not a clock report")
	require.Empty(t, list.Clocks)
	require.True(t, list.Incomplete)
}

func TestParseClocksEmpty(t *testing.T) {
	list := ParseClocks("")
	require.Empty(t, list.Clocks)
	require.False(t, list.Incomplete, "an empty report is empty, not malformed")
}

func TestDepth(t *testing.T) {
	require.Equal(t, 0, Depth("u_top"))
	require.Equal(t, 1, Depth("u_top/u_core"))
	require.Equal(t, 3, Depth("a/b/c/d"))
}

func TestParseHierarchy(t *testing.T) {
	raw := "u_core u_core/u_alu u_core/u_regfile u_io u_core/u_alu/u_adder"
	h := ParseHierarchy(raw, 2)

	require.Len(t, h.Cells, 5)
	require.Len(t, h.Tree, 2, "two roots: u_core and u_io")

	var core *HierarchyNode
	for _, n := range h.Tree {
		if n.Name == "u_core" {
			core = n
		}
	}
	require.NotNil(t, core)
	require.Len(t, core.Children, 2)
	require.Equal(t, "u_core/u_alu", core.Children[0].Path)
	require.Equal(t, 1, core.Children[0].Depth)
	require.Len(t, core.Children[0].Children, 1)
}

func TestParseHierarchyDepthFilter(t *testing.T) {
	raw := "top top/a top/a/b top/a/b/c"
	h := ParseHierarchy(raw, 1)

	require.Equal(t, []string{"top", "top/a"}, h.Cells)
}

func TestParseDispatch(t *testing.T) {
	r := Parse(KindTimingSummary, "WNS(ns): 0.1\nTNS(ns): 0.0\nWHS(ns): 0.2\nTHS(ns): 0.0")
	require.Equal(t, KindTimingSummary, r.Kind)
	require.NotNil(t, r.Timing)
	require.False(t, r.Incomplete)

	r = Parse(KindHierarchy, "top/u_core/u_alu/add_reg top/u_io")
	require.NotNil(t, r.Hierarchy)
	require.Contains(t, r.Hierarchy.Cells, "top/u_core/u_alu/add_reg",
		"dispatch applies no depth filter")

	r = Parse(Kind("bogus"), "text")
	require.True(t, r.Incomplete)
	require.Equal(t, "text", r.Raw)
}
