package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"barprovider/internal/credentials"
	"barprovider/internal/schema"
)

type fakeAdapter struct {
	name      string
	normErr   error
	extErr    error
	rows      []Row
	bars      []schema.Bar
	transErr  error
	extracted bool
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) NormalizeQuery(p schema.Params) (schema.Query, error) {
	if f.normErr != nil {
		return schema.Query{}, f.normErr
	}
	return schema.Query{Symbol: p.Symbol, Interval: "1d", Limit: 1}, nil
}

func (f *fakeAdapter) Extract(_ context.Context, _ schema.Query, _ credentials.Store) ([]Row, error) {
	f.extracted = true
	return f.rows, f.extErr
}

func (f *fakeAdapter) Transform(_ schema.Query, _ []Row) ([]schema.Bar, error) {
	if f.transErr != nil {
		return nil, f.transErr
	}
	return f.bars, nil
}

func TestRun_ComposesStages(t *testing.T) {
	t.Parallel()

	want := []schema.Bar{{
		Date: schema.DateOf(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
		Open: 1, High: 2, Low: 0.5, Close: 1.5,
	}}
	a := &fakeAdapter{name: "fake", bars: want}

	got, err := Run(t.Context(), a, schema.Params{Symbol: "BTCUSD"}, nil)
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.True(t, a.extracted)
}

func TestRun_NormalizationFailureSkipsExtraction(t *testing.T) {
	t.Parallel()

	verr := &ValidationError{Field: "symbol", Reason: "empty"}
	a := &fakeAdapter{name: "fake", normErr: verr}

	_, err := Run(t.Context(), a, schema.Params{}, nil)
	require.Error(t, err)
	var got *ValidationError
	require.True(t, errors.As(err, &got))
	require.False(t, a.extracted, "extract must not run after validation failure")
}

func TestRun_EmptyBatchIsErrEmptyData(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{name: "fake"} // transform yields nothing
	_, err := Run(t.Context(), a, schema.Params{Symbol: "BTCUSD"}, nil)
	require.ErrorIs(t, err, ErrEmptyData)

	// An adapter that raises ErrEmptyData itself surfaces identically.
	a = &fakeAdapter{name: "fake", transErr: ErrEmptyData}
	_, err = Run(t.Context(), a, schema.Params{Symbol: "BTCUSD"}, nil)
	require.ErrorIs(t, err, ErrEmptyData)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{name: "fake"}
	Register("fake_vendor", a)

	got, ok := Lookup("fake_vendor")
	require.True(t, ok)
	require.Equal(t, a, got)

	_, ok = Lookup("unknown")
	require.False(t, ok)

	require.Contains(t, Names(), "fake_vendor")
	require.Panics(t, func() { Register("fake_vendor", a) })
}
