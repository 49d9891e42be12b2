package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		header   string
		wantKept bool
	}{
		{"missing header gets a uuid", "", false},
		{"client id is propagated", "closure-batch-2024-06", true},
		{"id at the length limit is kept", strings.Repeat("a", maxCorrelationIDLength), true},
		{"oversized id is replaced", strings.Repeat("x", maxCorrelationIDLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CorrelationID())
			var seen string
			router.POST("/api/v1/closures", func(c *gin.Context) {
				seen = GetCorrelationID(c)
				c.Status(http.StatusAccepted)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/closures", nil)
			if tt.header != "" {
				req.Header.Set(CorrelationIDHeader, tt.header)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			got := rr.Header().Get(CorrelationIDHeader)
			assert.Equal(t, got, seen, "header and context must agree")
			if tt.wantKept {
				assert.Equal(t, tt.header, got)
				return
			}
			_, err := uuid.Parse(got)
			assert.NoError(t, err)
		})
	}
}

func TestGetCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetCorrelationID(c))

	c.Set(CorrelationIDKey, 12345)
	assert.Empty(t, GetCorrelationID(c), "non-string values are ignored")

	c.Set(CorrelationIDKey, "req-42")
	assert.Equal(t, "req-42", GetCorrelationID(c))
}
