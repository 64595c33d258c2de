package resources

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandler(t *testing.T) {
	tests := []struct {
		path       string
		wantStatus int
	}{
		{StaticPath("app.css"), http.StatusOK},
		{StaticPath("ok.svg"), http.StatusOK},
		{StaticPath("nok.svg"), http.StatusOK},
		{StaticPath("missing.js"), http.StatusNotFound},
	}

	h := Handler()
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
