package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"PolicyScan/internal/book"
	"PolicyScan/internal/config"
	"PolicyScan/internal/model"
)

func TestRESTFetcher_FetchPolicies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/insurance", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"insuranceId":"h1","insuranceName":"Family Health","insuranceType":"Health","insurancePrice":1200,"insuranceCoverage":500000,"insuranceFromDate":"2025-01-01","insuranceToDate":"2026-01-01"},
			{"insuranceId":"a1","insuranceName":"Car","insuranceType":"auto","insurancePrice":800}
		]`))
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL+"/", "secret", "", 5*time.Second)
	policies, err := f.FetchPolicies(context.Background())
	require.NoError(t, err)
	require.Len(t, policies, 2)

	assert.Equal(t, "h1", policies[0].ID)
	assert.Equal(t, model.CategoryHealth, policies[0].Category())
	assert.True(t, policies[0].HasCoverage())
	require.NotNil(t, policies[0].ExpiryDate)
	assert.Equal(t, 2026, policies[0].ExpiryDate.Year())

	assert.False(t, policies[1].HasCoverage())
	assert.Nil(t, policies[1].ExpiryDate)
}

func TestRESTFetcher_FetchPolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/insurance/p-7", r.URL.Path)
		_, _ = w.Write([]byte(`{"insuranceId":"p-7","insuranceType":"life","insurancePrice":300}`))
	}))
	defer srv.Close()

	p, err := NewRESTFetcher(srv.URL, "", "", 5*time.Second).FetchPolicy(context.Background(), "p-7")
	require.NoError(t, err)
	assert.Equal(t, "p-7", p.ID)
	assert.Equal(t, model.CategoryLife, p.Category())
}

func TestRESTFetcher_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   string
	}{
		{"unauthorized", http.StatusUnauthorized, "not authenticated"},
		{"server error", http.StatusInternalServerError, "status 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("nope"))
			}))
			defer srv.Close()

			_, err := NewRESTFetcher(srv.URL, "", "", 5*time.Second).FetchPolicies(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRESTFetcher_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"`))
	}))
	defer srv.Close()

	_, err := NewRESTFetcher(srv.URL, "", "", 5*time.Second).FetchPolicies(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestRESTFetcher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRESTFetcher("http://127.0.0.1:1", "", "", time.Second).FetchPolicies(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}

func createPolicyXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Policies")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			cell := row.AddCell()
			cell.SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "policies.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestXLSXFetcher(t *testing.T) {
	path := createPolicyXLSX(t, [][]string{
		{"ID", "Name", "Type", "Premium", "Coverage", "Start", "Expiry"},
		{"h1", "Health Plus", "health", "1,200", "500,000", "2025-01-01", "2026-01-01"},
		{"", "", "", "", "", "", ""},
		{"t1", "Trip", "Travel", "90", "", "", ""},
	})

	policies, err := NewXLSXFetcher(path).FetchPolicies(context.Background())
	require.NoError(t, err)
	require.Len(t, policies, 2)
	assert.Equal(t, "1200", policies[0].Premium.String())
	assert.Equal(t, "500000", policies[0].Coverage.Decimal.String())
	require.NotNil(t, policies[0].StartDate)
	assert.Equal(t, model.CategoryTravel, policies[1].Category())
	assert.False(t, policies[1].HasCoverage())
}

func TestReadPayloadsXLSX_ColumnOrderIndependent(t *testing.T) {
	path := createPolicyXLSX(t, [][]string{
		{"premium", "type", "id"},
		{"50", "home", "x"},
	})
	payloads, err := ReadPayloadsXLSX(path)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Equal(t, "x", payloads[0].ID)
	assert.Equal(t, "home", payloads[0].Type)
	assert.InDelta(t, 50.0, payloads[0].Price, 0.001)
}

func TestReadPayloadsXLSX_Errors(t *testing.T) {
	t.Run("missing column", func(t *testing.T) {
		path := createPolicyXLSX(t, [][]string{{"id", "name"}, {"a", "b"}})
		_, err := ReadPayloadsXLSX(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing required column")
	})
	t.Run("bad premium", func(t *testing.T) {
		path := createPolicyXLSX(t, [][]string{{"id", "type", "premium"}, {"a", "auto", "lots"}})
		_, err := ReadPayloadsXLSX(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "row 2")
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := ReadPayloadsXLSX(filepath.Join(t.TempDir(), "nope.xlsx"))
		require.Error(t, err)
	})
}

func TestCollector_Collect(t *testing.T) {
	mock := &MockFetcher{Policies: []model.PolicyRecord{{ID: "a", Type: "auto"}}}
	policies, err := NewCollector(mock).Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, policies, 1)

	mock.Err = errors.New("backend down")
	_, err = NewCollector(mock).Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mock")
}

func TestNewFetcher(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{}

	cfg.Source.Kind = "rest"
	cfg.Source.BaseURL = "http://localhost:8080"
	f, err := NewFetcher(cfg)
	require.NoError(t, err)
	assert.Equal(t, "rest", f.Name())

	cfg.Source.Kind = "xlsx"
	cfg.Source.Path = filepath.Join(dir, "p.xlsx")
	f, err = NewFetcher(cfg)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", f.Name())

	cfg.Source.Kind = "book"
	cfg.Book.Path = filepath.Join(dir, "book.yaml")
	f, err = NewFetcher(cfg)
	require.NoError(t, err)
	assert.Equal(t, "book", f.Name())

	cfg.Source.Kind = "carrier-pigeon"
	_, err = NewFetcher(cfg)
	require.Error(t, err)
}

func TestBookFetcher(t *testing.T) {
	m, err := book.NewManager(filepath.Join(t.TempDir(), "book.yaml"), "sam")
	require.NoError(t, err)
	_, err = m.Add(model.PolicyPayload{ID: "h1", Type: "health", Price: 100})
	require.NoError(t, err)

	policies, err := NewBookFetcher(m).FetchPolicies(context.Background())
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, "h1", policies[0].ID)
}
