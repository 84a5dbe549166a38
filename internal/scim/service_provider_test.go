package scim

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestGetConfigHandler(t *testing.T) {
	handler := NewServiceProviderHandler(DefaultServiceProviderConfig())

	router := gin.New()
	router.GET("/ServiceProviderConfigs", handler.GetConfigHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ServiceProviderConfigs", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var config ServiceProviderConfig
	err := json.Unmarshal(w.Body.Bytes(), &config)
	require.NoError(t, err)

	assert.Equal(t, []string{"urn:scim:schemas:core:1.0"}, config.Schemas)
	assert.True(t, config.Patch.Supported)
	assert.False(t, config.Bulk.Supported)
	assert.True(t, config.Filter.Supported)
	assert.Equal(t, 100, config.Filter.MaxResults)
	require.Len(t, config.AuthSchemes, 1)
	assert.Equal(t, "oauthbearertoken", config.AuthSchemes[0].Type)
	assert.True(t, config.AuthSchemes[0].Primary)
}
