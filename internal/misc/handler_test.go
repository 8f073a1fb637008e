package misc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// use TestMain(m *testing.M) { ... } for
// global set-up/tear-down for all the tests in a package
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHandler_Health(t *testing.T) {
	testCases := []struct {
		name           string
		storeCheck     StoreCheck
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "no store check",
			expectedStatus: http.StatusOK,
			expectedBody:   "I'm OK, thanks ;)",
		},
		{
			name:           "store up",
			storeCheck:     func(context.Context) error { return nil },
			expectedStatus: http.StatusOK,
			expectedBody:   "I'm OK, thanks ;)",
		},
		{
			name:           "store down",
			storeCheck:     func(context.Context) error { return errors.New("dial tcp: connection refused") },
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "store unavailable",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := mux.NewRouter()
			NewHandler("v1", tc.storeCheck).SetupRoutes(r)

			rr := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/health", nil)
			r.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.Equal(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func TestHandler_Version(t *testing.T) {
	r := mux.NewRouter()
	NewHandler("3f2c1a9", nil).SetupRoutes(r)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/version", nil)
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "3f2c1a9", rr.Body.String())
}
