package patentsview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipbench/ipsignal/internal/config"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/logging"
	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/ipbench/ipsignal/pkg/errors"
)

func testConfig(baseURL string) config.PatentsViewConfig {
	return config.PatentsViewConfig{
		BaseURL:         baseURL,
		APIKey:          "test-key",
		RequestInterval: time.Millisecond,
		BackoffBase:     time.Millisecond,
		MaxRetries:      3,
		Timeout:         time.Second,
	}
}

func TestForwardCitations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.Contains(t, r.URL.RawQuery, "patents_cited.patent_id")
		w.Write([]byte(`{
			"patents": [
				{"patent_id": "11111111", "assignees": [{"assignee_organization": "Samsung Electronics Co., Ltd."}]},
				{"patent_id": "22222222", "assignees": []}
			],
			"count": 2, "total_hits": 2
		}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), logging.NewNopLogger())
	citing, err := c.ForwardCitations(context.Background(), "10000001")
	require.NoError(t, err)
	require.Len(t, citing, 2)
	assert.Equal(t, "11111111", citing[0].PatentID)
	require.Len(t, citing[0].Assignees, 1)
	assert.Equal(t, "Samsung Electronics Co., Ltd.", citing[0].Assignees[0].AssigneeOrganization)
	assert.Empty(t, citing[1].Assignees)
}

func TestForwardCitationsEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"patents": [], "count": 0, "total_hits": 0}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), logging.NewNopLogger())
	citing, err := c.ForwardCitations(context.Background(), "10000001")
	require.NoError(t, err)
	assert.Empty(t, citing)
}

func TestForwardCitationsRetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"patents": [{"patent_id": "33333333", "assignees": []}], "count": 1, "total_hits": 1}`))
	}))
	defer srv.Close()

	metrics := prometheus.NewPipelineMetrics()
	c := NewClient(testConfig(srv.URL), logging.NewNopLogger(), WithMetrics(metrics))
	citing, err := c.ForwardCitations(context.Background(), "10000001")
	require.NoError(t, err)
	assert.Len(t, citing, 1)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.FetchRequests))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.FetchRetries))
}

func TestForwardCitationsRetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 2
	c := NewClient(cfg, logging.NewNopLogger())

	_, err := c.ForwardCitations(context.Background(), "10000001")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeAPIRetriesExhausted))
}

func TestForwardCitationsPermanentFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), logging.NewNopLogger())
	_, err := c.ForwardCitations(context.Background(), "10000001")
	require.Error(t, err)

	// 4xx other than 429 is not retried.
	assert.Equal(t, int32(1), calls.Load())
}

func TestForwardCitationsBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{broken`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), logging.NewNopLogger())
	_, err := c.ForwardCitations(context.Background(), "10000001")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCitationDataInvalid))
}
