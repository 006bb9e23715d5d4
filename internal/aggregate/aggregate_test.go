package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"barprovider/internal/interval"
	"barprovider/internal/schema"
)

func dayBar(sym string, day int, open, high, low, close float64) schema.Bar {
	return schema.Bar{
		Date:   schema.DateOf(time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC)),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Symbol: sym,
	}
}

func TestSortBars_GroupsBySymbolThenTime(t *testing.T) {
	bars := []schema.Bar{
		dayBar("ETHUSD", 5, 1, 2, 0.5, 1.5),
		dayBar("BTCUSD", 6, 1, 2, 0.5, 1.5),
		dayBar("ETHUSD", 4, 1, 2, 0.5, 1.5),
		dayBar("BTCUSD", 5, 1, 2, 0.5, 1.5),
	}

	SortBars(bars, schema.SortAsc)
	require.Equal(t, "BTCUSD", bars[0].Symbol)
	require.Equal(t, "2024-03-05", bars[0].Date.String())
	require.Equal(t, "2024-03-06", bars[1].Date.String())
	require.Equal(t, "ETHUSD", bars[2].Symbol)
	require.Equal(t, "2024-03-04", bars[2].Date.String())

	SortBars(bars, schema.SortDesc)
	require.Equal(t, "BTCUSD", bars[0].Symbol)
	require.Equal(t, "2024-03-06", bars[0].Date.String())
	require.Equal(t, "2024-03-05", bars[1].Date.String())
}

func TestResample_DailyToWeekly(t *testing.T) {
	// 2024-03-04 is a Monday.
	v1, v2 := 100.0, 200.0
	w1, w2 := 10.0, 20.0
	n1, n2 := int64(5), int64(7)
	bars := []schema.Bar{
		{Date: schema.DateOf(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)),
			Open: 2, High: 5, Low: 1.5, Close: 4, Volume: &v2, VWAP: &w2, Transactions: &n2},
		{Date: schema.DateOf(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)),
			Open: 1, High: 3, Low: 0.5, Close: 2, Volume: &v1, VWAP: &w1, Transactions: &n1},
		{Date: schema.DateOf(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)),
			Open: 4, High: 6, Low: 3, Close: 5},
	}

	out := Resample(bars, interval.Spec{Multiplier: 1, Unit: interval.Week})
	require.Len(t, out, 2)

	week := out[0]
	require.Equal(t, "2024-03-04", week.Date.String())
	require.Equal(t, 1.0, week.Open)  // first bar of the week
	require.Equal(t, 4.0, week.Close) // last bar of the week
	require.Equal(t, 5.0, week.High)
	require.Equal(t, 0.5, week.Low)
	require.NotNil(t, week.Volume)
	require.Equal(t, 300.0, *week.Volume)
	require.NotNil(t, week.VWAP)
	// volume-weighted: (10*100 + 20*200) / 300
	require.InDelta(t, 16.6667, *week.VWAP, 0.001)
	require.NotNil(t, week.Transactions)
	require.EqualValues(t, 12, *week.Transactions)

	next := out[1]
	require.Equal(t, "2024-03-11", next.Date.String())
	require.Nil(t, next.Volume)
	require.Nil(t, next.VWAP)
}

func TestResample_HourlyToDailyKeepsDateOnly(t *testing.T) {
	bars := []schema.Bar{
		{Date: schema.InstantOf(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)), Open: 1, High: 2, Low: 1, Close: 1.5},
		{Date: schema.InstantOf(time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC)), Open: 1.5, High: 3, Low: 1.2, Close: 2.8},
	}

	out := Resample(bars, interval.Spec{Multiplier: 1, Unit: interval.Day})
	require.Len(t, out, 1)
	require.True(t, out[0].Date.DateOnly())
	require.Equal(t, "2024-03-01", out[0].Date.String())
	require.Equal(t, 1.0, out[0].Open)
	require.Equal(t, 2.8, out[0].Close)
}

func TestResample_IntradayBucketsKeepTime(t *testing.T) {
	bars := []schema.Bar{
		{Date: schema.InstantOf(time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC)), Open: 1, High: 2, Low: 1, Close: 1.5},
		{Date: schema.InstantOf(time.Date(2024, 3, 1, 9, 25, 0, 0, time.UTC)), Open: 1.5, High: 3, Low: 1.2, Close: 2.8},
		{Date: schema.InstantOf(time.Date(2024, 3, 1, 9, 35, 0, 0, time.UTC)), Open: 2.8, High: 4, Low: 2.5, Close: 3.5},
	}

	out := Resample(bars, interval.Spec{Multiplier: 30, Unit: interval.Minute})
	require.Len(t, out, 2)
	require.False(t, out[0].Date.DateOnly())
	require.Equal(t, "2024-03-01T09:00:00+0000", out[0].Date.String())
	require.Equal(t, 2.8, out[0].Close)
	require.Equal(t, "2024-03-01T09:30:00+0000", out[1].Date.String())
}

func TestResample_SymbolsStaySeparate(t *testing.T) {
	bars := []schema.Bar{
		dayBar("BTCUSD", 4, 1, 2, 0.5, 1.5),
		dayBar("ETHUSD", 5, 10, 20, 5, 15),
	}

	out := Resample(bars, interval.Spec{Multiplier: 1, Unit: interval.Week})
	require.Len(t, out, 2)
	require.Equal(t, "BTCUSD", out[0].Symbol)
	require.Equal(t, "ETHUSD", out[1].Symbol)
}
