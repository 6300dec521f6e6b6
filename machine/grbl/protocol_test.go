package grbl

import (
	"testing"

	"github.com/mastercactapus/svgrbl/coord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	assert.Equal(t, Response{Kind: Ack, Raw: "ok"}, ParseResponse("ok"))
	assert.Equal(t, Ack, ParseResponse("OK").Kind)
	assert.Equal(t, Info, ParseResponse("okay").Kind)
	assert.Equal(t, Info, ParseResponse("ok ").Kind)

	assert.Equal(t, Response{Kind: Reject, Code: "9", Raw: "error:9"}, ParseResponse("error:9"))
	assert.Equal(t, Response{Kind: Reject, Code: "Bad number", Raw: "Error: Bad number "}, ParseResponse("Error: Bad number "))
	assert.Equal(t, Response{Kind: Reject, Code: "", Raw: "error:"}, ParseResponse("error:"))

	assert.Equal(t, Info, ParseResponse("error").Kind)
	assert.Equal(t, Info, ParseResponse("Grbl 1.1f ['$' for help]").Kind)
	assert.Equal(t, Info, ParseResponse("<Idle|MPos:0.000,0.000,0.000>").Kind)
	assert.Equal(t, Info, ParseResponse("").Kind)
}

func TestCleanLines(t *testing.T) {
	in := []string{
		"  G21  ",
		"",
		"   ",
		"; full line comment",
		"G90 ; absolute",
		"(header comment)",
		"G0 (rapid) X1 (to one)",
		"(a) G1 X2",
		"G1 X3 (unclosed",
		"M2",
		"(only)(comments)",
	}
	assert.Equal(t, []string{
		"G21",
		"G90",
		"G0   X1",
		"G1 X2",
		"G1 X3 (unclosed",
		"M2",
	}, CleanLines(in))

	assert.Empty(t, CleanLines(nil))
}

func TestParseStatus(t *testing.T) {
	st, err := parseStatus(Status{}, "<Idle|MPos:10.000,5.000,-1.000|FS:0,0|WCO:5.000,5.000,0.000>")
	require.NoError(t, err)
	assert.Equal(t, "Idle", st.State)
	assert.Equal(t, coord.Point{X: 10, Y: 5, Z: -1}, st.MPos)
	assert.Equal(t, coord.Point{X: 5, Y: 0, Z: -1}, st.WPos)

	// WCO carries over from the previous report
	st, err = parseStatus(*st, "<Run|MPos:11.000,5.000,-1.000|F:250>")
	require.NoError(t, err)
	assert.Equal(t, "Run", st.State)
	assert.Equal(t, coord.Point{X: 6, Y: 0, Z: -1}, st.WPos)
	assert.Equal(t, 250.0, st.Feed)

	st, err = parseStatus(Status{WCO: coord.Point{X: 1}}, "<Hold:0|WPos:1.000,2.000,3.000>")
	require.NoError(t, err)
	assert.Equal(t, coord.Point{X: 2, Y: 2, Z: 3}, st.MPos)

	_, err = parseStatus(Status{}, "<Idle|MPos:1,2>")
	assert.Error(t, err)
	_, err = parseStatus(Status{}, "ok")
	assert.Error(t, err)
}

func TestState_Text(t *testing.T) {
	for st := Idle; st <= Done; st++ {
		data, err := st.MarshalText()
		require.NoError(t, err)
		var got State
		require.NoError(t, got.UnmarshalText(data))
		assert.Equal(t, st, got)
	}
	var s State
	assert.Error(t, s.UnmarshalText([]byte("Running")))
	assert.False(t, Done.Active())
	assert.True(t, Paused.Active())
}
