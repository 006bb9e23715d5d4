package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBarTime_JSONRendering(t *testing.T) {
	t.Parallel()

	// 2024-03-01T00:00:00Z in epoch millis.
	midnight := int64(1709251200000)

	daily := FromUnixMilli(midnight, true)
	b, err := json.Marshal(daily)
	require.NoError(t, err)
	require.Equal(t, `"2024-03-01"`, string(b))

	hourly := FromUnixMilli(midnight, false)
	b, err = json.Marshal(hourly)
	require.NoError(t, err)
	require.Equal(t, `"2024-03-01T00:00:00+0000"`, string(b))
}

func TestBarTime_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, in := range []BarTime{
		DateOf(time.Date(2023, 6, 15, 13, 45, 0, 0, time.UTC)),
		InstantOf(time.Date(2023, 6, 15, 13, 45, 9, 0, time.UTC)),
	} {
		b, err := json.Marshal(in)
		require.NoError(t, err)
		var out BarTime
		require.NoError(t, json.Unmarshal(b, &out))
		require.True(t, in.Equal(out), "in=%s out=%s", in, out)
	}
}

func TestBarTime_DateOfTruncates(t *testing.T) {
	t.Parallel()

	bt := DateOf(time.Date(2024, 3, 1, 17, 30, 12, 0, time.UTC))
	require.True(t, bt.DateOnly())
	require.Equal(t, "2024-03-01", bt.String())
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), bt.Time())
}

func TestQuery_Symbols(t *testing.T) {
	t.Parallel()

	q := Query{Symbol: "BTCUSD"}
	require.Equal(t, []string{"BTCUSD"}, q.Symbols())
	require.False(t, q.MultiSymbol())

	q = Query{Symbol: "BTCUSD,ETHUSD, SOLUSD"}
	require.Equal(t, []string{"BTCUSD", "ETHUSD", "SOLUSD"}, q.Symbols())
	require.True(t, q.MultiSymbol())
}

func TestBar_OptionalFieldsOmitted(t *testing.T) {
	t.Parallel()

	bar := Bar{
		Date: DateOf(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
		Open: 1, High: 2, Low: 0.5, Close: 1.5,
	}
	b, err := json.Marshal(bar)
	require.NoError(t, err)
	require.NotContains(t, string(b), "volume")
	require.NotContains(t, string(b), "vwap")
	require.NotContains(t, string(b), "transactions")
	require.NotContains(t, string(b), "symbol")
}
