package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotcheck/internal/platform/middleware"
	"spotcheck/internal/spotcheck/service"
	"spotcheck/internal/spotcheck/store/ignore"
	"spotcheck/internal/spotcheck/store/issue"
	"spotcheck/internal/spotcheck/store/ledger"
	"spotcheck/pkg/testutil"
)

const testSigningKey = "test-signing-key"

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	ignores := ignore.NewMemory()
	issues := issue.NewMemory()
	ledgerStore := ledger.NewMemory(ignores, issues)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := service.New(logger, ledgerStore, ignores, issues, nil)

	router := chi.NewRouter()
	New(engine, logger, middleware.NewAdminValidator(testSigningKey)).Register(router)
	return router
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSigningKey))
	require.NoError(t, err)
	return token
}

func validReport(reportTime string) map[string]any {
	return map[string]any{
		"referenceType":     "LBDC_DAYBREAK",
		"reportDateTime":    reportTime,
		"referenceDateTime": "2023-03-01T05:00:00Z",
		"observations": []map[string]any{{
			"key":              map[string]string{"session": "2023", "basePrintNo": "S100"},
			"observedDateTime": "2023-03-01T05:30:00Z",
			"mismatches": []map[string]any{{
				"mismatchType":  "BILL_TITLE",
				"referenceData": "An act",
				"observedData":  "A different act",
			}},
		}},
	}
}

func ingestReport(t *testing.T, router chi.Router, reportTime string) {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/spotcheck/reports", validReport(reportTime))
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
}

func TestSaveReportEndpoint(t *testing.T) {
	router := newTestRouter(t)

	t.Run("valid report accepted", func(t *testing.T) {
		ingestReport(t, router, "2023-03-01T06:00:00Z")
	})

	t.Run("duplicate rejected with conflict", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/spotcheck/reports", validReport("2023-03-01T06:00:00Z"))
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusConflict)
	})

	t.Run("unknown reference type rejected", func(t *testing.T) {
		body := validReport("2023-03-02T06:00:00Z")
		body["referenceType"] = "LBDC_TRANSCRIPT"
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/spotcheck/reports", body)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorContains(t, rr, "invalid reference type")
	})

	t.Run("malformed key rejected", func(t *testing.T) {
		body := validReport("2023-03-02T06:00:00Z")
		body["observations"] = []map[string]any{{
			"key":              map[string]string{"session": "abc"},
			"observedDateTime": "2023-03-02T05:30:00Z",
		}}
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/spotcheck/reports", body)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("invalid body rejected", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/api/spotcheck/reports", "not an object")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestGetMismatchesEndpoint(t *testing.T) {
	router := newTestRouter(t)
	ingestReport(t, router, "2023-03-01T06:00:00Z")

	t.Run("requires data source", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/spotcheck/mismatches"))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("returns latest state", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/spotcheck/mismatches?dataSource=LBDC&status=NEW"))
		testutil.AssertStatus(t, rr, http.StatusOK)

		page := testutil.UnmarshalResponse[paginatedResponse[mismatchResponse]](t, rr)
		require.Len(t, page.Results, 1)
		assert.Equal(t, 1, page.Total)
		assert.Equal(t, "NEW", page.Results[0].Status)
		assert.Equal(t, "S100", page.Results[0].Key["basePrintNo"])
		assert.Equal(t, "NOT_IGNORED", page.Results[0].IgnoreLevel)
	})

	t.Run("rejects bad filter values", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/spotcheck/mismatches?dataSource=LBDC&status=OPEN"))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)

		rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/spotcheck/mismatches?dataSource=LBDC&limit=-1"))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestSummaryEndpoint(t *testing.T) {
	router := newTestRouter(t)
	ingestReport(t, router, "2023-03-01T06:00:00Z")

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
		"/api/spotcheck/summary?dataSource=LBDC&asOf=2023-03-01T07:00:00Z"))
	testutil.AssertStatus(t, rr, http.StatusOK)

	summary := testutil.UnmarshalResponse[summaryResponse](t, rr)
	assert.Equal(t, 1, summary.Counts["BILL"]["NEW"])
}

func TestReportEndpoints(t *testing.T) {
	router := newTestRouter(t)
	ingestReport(t, router, "2023-03-01T06:00:00Z")

	t.Run("list summaries", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/spotcheck/reports?start=2023-03-01T00:00:00Z&end=2023-03-02T00:00:00Z"))
		testutil.AssertStatus(t, rr, http.StatusOK)

		summaries := testutil.UnmarshalResponse[[]reportSummaryResponse](t, rr)
		require.Len(t, *summaries, 1)
		assert.Equal(t, 1, (*summaries)[0].Total)
	})

	t.Run("get report history", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/spotcheck/reports/LBDC_DAYBREAK/2023-03-01T06:00:00Z"))
		testutil.AssertStatus(t, rr, http.StatusOK)

		history := testutil.UnmarshalResponse[reportHistoryResponse](t, rr)
		require.Len(t, history.Rows, 1)
		assert.True(t, history.Rows[0].Current)
	})

	t.Run("unknown report is 404", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/spotcheck/reports/LBDC_DAYBREAK/2023-12-01T06:00:00Z"))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	router := newTestRouter(t)
	ingestReport(t, router, "2023-03-01T06:00:00Z")

	t.Run("missing token", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodDelete,
			"/api/spotcheck/reports/LBDC_DAYBREAK/2023-03-01T06:00:00Z")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("token without admin role", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.AdminClaims{
			Role: "viewer",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString([]byte(testSigningKey))
		require.NoError(t, err)

		req := testutil.NewRequest(t, http.MethodDelete,
			"/api/spotcheck/reports/LBDC_DAYBREAK/2023-03-01T06:00:00Z")
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("valid token deletes report", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodDelete,
			"/api/spotcheck/reports/LBDC_DAYBREAK/2023-03-01T06:00:00Z")
		req.Header.Set("Authorization", "Bearer "+adminToken(t))
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})
}

func TestIgnoreAndIssueEndpoints(t *testing.T) {
	router := newTestRouter(t)
	ingestReport(t, router, "2023-03-01T06:00:00Z")
	token := adminToken(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
		"/api/spotcheck/mismatches?dataSource=LBDC"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	page := testutil.UnmarshalResponse[paginatedResponse[mismatchResponse]](t, rr)
	require.Len(t, page.Results, 1)
	rowID := page.Results[0].ID

	t.Run("set ignore level", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPut,
			fmt.Sprintf("/api/spotcheck/mismatches/%d/ignore", rowID), ignoreRequest{IgnoreLevel: "PERMANENT"})
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusNoContent)

		// Default view no longer shows the suppressed lineage.
		rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/spotcheck/mismatches?dataSource=LBDC"))
		page := testutil.UnmarshalResponse[paginatedResponse[mismatchResponse]](t, rr)
		assert.Empty(t, page.Results)

		// But shows up when asked for explicitly.
		rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/spotcheck/mismatches?dataSource=LBDC&ignoreLevel=PERMANENT"))
		page = testutil.UnmarshalResponse[paginatedResponse[mismatchResponse]](t, rr)
		assert.Len(t, page.Results, 1)
	})

	t.Run("bad ignore level rejected", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPut,
			fmt.Sprintf("/api/spotcheck/mismatches/%d/ignore", rowID), ignoreRequest{IgnoreLevel: "FOREVER"})
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("issue links", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost,
			fmt.Sprintf("/api/spotcheck/mismatches/%d/issues/LBDC-42", rowID))
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusNoContent)

		rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
			"/api/spotcheck/mismatches?dataSource=LBDC&ignoreLevel=PERMANENT"))
		page := testutil.UnmarshalResponse[paginatedResponse[mismatchResponse]](t, rr)
		require.Len(t, page.Results, 1)
		assert.Equal(t, []string{"LBDC-42"}, page.Results[0].IssueIDs)

		req = testutil.NewRequest(t, http.MethodDelete,
			fmt.Sprintf("/api/spotcheck/mismatches/%d/issues/LBDC-42", rowID))
		req.Header.Set("Authorization", "Bearer "+token)
		rr = testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})

	t.Run("unknown mismatch id is 404", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPut,
			"/api/spotcheck/mismatches/999/ignore", ignoreRequest{IgnoreLevel: "TEMPORARY"})
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

}
