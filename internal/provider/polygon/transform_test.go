package polygon_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"barprovider/internal/fetcher"
	"barprovider/internal/provider/polygon"
	"barprovider/internal/schema"
)

func row(t *testing.T, raw string, ts schema.BarTime, sym string) fetcher.Row {
	t.Helper()
	require.True(t, json.Valid([]byte(raw)), "bad test fixture: %s", raw)
	return fetcher.Row{Raw: json.RawMessage(raw), Time: ts, Symbol: sym}
}

func TestTransform_AliasMapping(t *testing.T) {
	t.Parallel()

	a := polygon.New(polygon.Config{AssetClass: polygon.AssetCrypto}, nil)
	ts := schema.DateOf(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	bars, err := a.Transform(schema.Query{}, []fetcher.Row{
		row(t, `{"t":1709251200000,"o":1.1,"h":2.2,"l":0.9,"c":1.8,"v":1000,"vw":1.55,"n":42}`, ts, "BTCUSD"),
	})
	require.NoError(t, err)
	require.Len(t, bars, 1)

	bar := bars[0]
	require.Equal(t, 1.1, bar.Open)
	require.Equal(t, 2.2, bar.High)
	require.Equal(t, 0.9, bar.Low)
	require.Equal(t, 1.8, bar.Close)
	require.NotNil(t, bar.Volume)
	require.Equal(t, 1000.0, *bar.Volume)
	require.NotNil(t, bar.VWAP)
	require.Equal(t, 1.55, *bar.VWAP)
	require.NotNil(t, bar.Transactions)
	require.Equal(t, int64(42), *bar.Transactions)
	require.Equal(t, "BTCUSD", bar.Symbol)
	require.True(t, bar.Date.Equal(ts))
}

func TestTransform_OptionalFieldsAbsent(t *testing.T) {
	t.Parallel()

	a := polygon.New(polygon.Config{}, nil)
	ts := schema.DateOf(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	bars, err := a.Transform(schema.Query{}, []fetcher.Row{
		row(t, `{"t":1709251200000,"o":1,"h":2,"l":1,"c":2}`, ts, ""),
	})
	require.NoError(t, err)
	require.Nil(t, bars[0].Volume)
	require.Nil(t, bars[0].VWAP)
	require.Nil(t, bars[0].Transactions)
	require.Empty(t, bars[0].Symbol)
}

func TestTransform_ToleratesQuotedAndScientificNumbers(t *testing.T) {
	t.Parallel()

	a := polygon.New(polygon.Config{}, nil)
	ts := schema.DateOf(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	bars, err := a.Transform(schema.Query{}, []fetcher.Row{
		row(t, `{"t":1709251200000,"o":"1.5","h":2,"l":1,"c":2,"v":1.2e6}`, ts, ""),
	})
	require.NoError(t, err)
	require.Equal(t, 1.5, bars[0].Open)
	require.Equal(t, 1.2e6, *bars[0].Volume)
}

func TestTransform_DropsInvalidRowsByDefault(t *testing.T) {
	t.Parallel()

	a := polygon.New(polygon.Config{}, nil)
	ts := schema.DateOf(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	bars, err := a.Transform(schema.Query{}, []fetcher.Row{
		row(t, `{"t":1709251200000,"o":1,"h":2,"l":1,"c":2}`, ts, ""),
		row(t, `{"t":1709337600000,"o":"n/a","h":2,"l":1,"c":2}`, ts, ""),
		row(t, `{"t":1709424000000,"h":2,"l":1,"c":2}`, ts, ""), // missing open
		row(t, `{"t":1709510400000,"o":1,"h":2,"l":1,"c":2,"v":-5}`, ts, ""),
	})
	require.NoError(t, err)
	require.Len(t, bars, 1)
}

func TestTransform_StrictRowsFailsBatch(t *testing.T) {
	t.Parallel()

	a := polygon.New(polygon.Config{StrictRows: true}, nil)
	ts := schema.DateOf(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	_, err := a.Transform(schema.Query{}, []fetcher.Row{
		row(t, `{"t":1709251200000,"o":1,"h":2,"l":1,"c":2}`, ts, ""),
		row(t, `{"t":1709337600000,"h":2,"l":1,"c":2}`, ts, ""),
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, fetcher.ErrEmptyData)
}

func TestTransform_EmptyOrFullyRejectedIsErrEmptyData(t *testing.T) {
	t.Parallel()

	a := polygon.New(polygon.Config{}, nil)

	_, err := a.Transform(schema.Query{}, nil)
	require.ErrorIs(t, err, fetcher.ErrEmptyData)

	ts := schema.DateOf(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	_, err = a.Transform(schema.Query{}, []fetcher.Row{
		row(t, `{"t":1709251200000}`, ts, ""),
	})
	require.ErrorIs(t, err, fetcher.ErrEmptyData)
}
