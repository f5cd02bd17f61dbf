package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/funding_radar/internal/domain"
)

func TestFetchSnapshot_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/funding-data", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"all_markets": [
				{"market":"ETH-PERP","hourly_percentage":0.01,"apr":87.6,"volume_24h":1000000},
				{"market":"XYZ-PERP","hourly_percentage":null,"apr":null,"volume_24h":null}
			],
			"top_funding_opportunities": [
				{"market":"ETH-PERP","hourly_percentage":0.01,"apr":87.6,"volume_24h":1000000}
			],
			"last_updated_timestamp": 1748786400
		}`))
	}))
	defer srv.Close()

	snap, err := NewClient(srv.URL).FetchSnapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.AllMarkets, 2)
	assert.Equal(t, "ETH-PERP", snap.AllMarkets[0].Market)
	require.NotNil(t, snap.AllMarkets[0].APR)
	assert.Equal(t, 87.6, *snap.AllMarkets[0].APR)
	assert.Nil(t, snap.AllMarkets[1].HourlyPercentage)
	require.Len(t, snap.TopFundingOpportunities, 1)
	require.NotNil(t, snap.LastUpdatedTimestamp)
	assert.Equal(t, 1748786400.0, *snap.LastUpdatedTimestamp)
}

func TestFetchSnapshot_OmittedTimestampIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"all_markets":[],"top_funding_opportunities":[]}`))
	}))
	defer srv.Close()

	snap, err := NewClient(srv.URL).FetchSnapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap.LastUpdatedTimestamp)
	assert.Empty(t, snap.AllMarkets)
}

func TestFetchSnapshot_Non2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchSnapshot(context.Background())
	require.Error(t, err)

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, domain.FetchErrStatus, fetchErr.Kind)
	assert.Contains(t, fetchErr.Message, "500")
}

func TestFetchSnapshot_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"all_markets": [`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchSnapshot(context.Background())

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, domain.FetchErrDecode, fetchErr.Kind)
}

func TestFetchSnapshot_MissingArraysIsSchemaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"last_updated_timestamp": 1748786400}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchSnapshot(context.Background())

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, domain.FetchErrSchema, fetchErr.Kind)
}

func TestFetchSnapshot_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := NewClient(srv.URL).FetchSnapshot(context.Background())

	var fetchErr *domain.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, domain.FetchErrNetwork, fetchErr.Kind)
}
