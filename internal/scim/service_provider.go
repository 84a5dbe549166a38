// Package scim serves the SCIM metadata documents the front door answers
// directly, without forwarding to the resource backend.
package scim

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ServiceProviderConfig is the SCIM 1.1 service provider configuration
// document. It describes the capabilities of the overall service and is
// readable without any scopes.
type ServiceProviderConfig struct {
	Schemas          []string               `json:"schemas"`
	DocumentationURL string                 `json:"documentationUrl"`
	Patch            Supported              `json:"patch"`
	Bulk             BulkConfig             `json:"bulk"`
	Filter           FilterConfig           `json:"filter"`
	ChangePassword   Supported              `json:"changePassword"`
	Sort             Supported              `json:"sort"`
	Etag             Supported              `json:"etag"`
	XMLDataFormat    Supported              `json:"xmlDataFormat"`
	AuthSchemes      []AuthenticationScheme `json:"authenticationSchemes"`
}

// Supported flags a single optional SCIM capability.
type Supported struct {
	Supported bool `json:"supported"`
}

// BulkConfig describes bulk operation support.
type BulkConfig struct {
	Supported      bool `json:"supported"`
	MaxOperations  int  `json:"maxOperations"`
	MaxPayloadSize int  `json:"maxPayloadSize"`
}

// FilterConfig describes filter support.
type FilterConfig struct {
	Supported  bool `json:"supported"`
	MaxResults int  `json:"maxResults"`
}

// AuthenticationScheme describes one way callers can authenticate.
type AuthenticationScheme struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SpecURL     string `json:"specUrl"`
	Type        string `json:"type"`
	Primary     bool   `json:"primary"`
}

// DefaultServiceProviderConfig returns the capabilities this service exposes.
func DefaultServiceProviderConfig() ServiceProviderConfig {
	return ServiceProviderConfig{
		Schemas:          []string{"urn:scim:schemas:core:1.0"},
		DocumentationURL: "http://www.simplecloud.info",
		Patch:            Supported{Supported: true},
		Bulk: BulkConfig{
			Supported:      false,
			MaxOperations:  0,
			MaxPayloadSize: 0,
		},
		Filter: FilterConfig{
			Supported:  true,
			MaxResults: 100,
		},
		ChangePassword: Supported{Supported: true},
		Sort:           Supported{Supported: true},
		Etag:           Supported{Supported: false},
		XMLDataFormat:  Supported{Supported: false},
		AuthSchemes: []AuthenticationScheme{
			{
				Name:        "OAuth 2.0 Bearer Token",
				Description: "Authentication using a bearer token issued by the authorization server",
				SpecURL:     "https://tools.ietf.org/html/rfc6750",
				Type:        "oauthbearertoken",
				Primary:     true,
			},
		},
	}
}

// ServiceProviderHandler serves the service provider configuration document.
type ServiceProviderHandler struct {
	config ServiceProviderConfig
}

// NewServiceProviderHandler creates a handler serving the given configuration.
func NewServiceProviderHandler(config ServiceProviderConfig) *ServiceProviderHandler {
	return &ServiceProviderHandler{config: config}
}

// GetConfigHandler returns the service provider configuration.
// GET /ServiceProviderConfigs - readable by any authenticated caller.
func (h *ServiceProviderHandler) GetConfigHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.config)
}
