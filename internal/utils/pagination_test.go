package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newQueryContext(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return c
}

func TestGetPaginationParams(t *testing.T) {
	p := GetPaginationParams(newQueryContext("page=3&limit=10"))
	assert.Equal(t, PaginationParams{Page: 3, Limit: 10, Offset: 20}, p)

	p = GetPaginationParams(newQueryContext("page=-1&limit=1000"))
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.Limit)
	assert.Equal(t, 0, p.Offset)
}

func TestGetOffsetParams(t *testing.T) {
	p := GetOffsetParams(newQueryContext(""), 100, 500)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p = GetOffsetParams(newQueryContext("limit=9999&offset=40"), 100, 500)
	assert.Equal(t, 500, p.Limit)
	assert.Equal(t, 40, p.Offset)

	p = GetOffsetParams(newQueryContext("limit=abc&offset=-5"), 100, 500)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, 0, p.Offset)
}
