package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditHTTP "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/http"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/config"
)

const portalOrigin = "https://portal.sda-provider.org.au"

func corsRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	if middleware := newCORSMiddleware(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); middleware != nil {
		router.Use(middleware)
	}
	router.GET("/v1/audit-logs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": []string{}})
	})
	router.POST("/v1/audit-logs", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return router
}

func TestNewCORSMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		cfg     *config.Config
		enabled bool
	}{
		{
			name:    "disabled by default",
			cfg:     &config.Config{CORSAllowOrigins: portalOrigin},
			enabled: false,
		},
		{
			name:    "enabled without origins",
			cfg:     &config.Config{CORSEnabled: true},
			enabled: false,
		},
		{
			name:    "enabled with only invalid origins",
			cfg:     &config.Config{CORSEnabled: true, CORSAllowOrigins: "*, portal.sda-provider.org.au"},
			enabled: false,
		},
		{
			name:    "enabled with portal and admin origins",
			cfg:     &config.Config{CORSEnabled: true, CORSAllowOrigins: portalOrigin + ", https://admin.sda-provider.org.au"},
			enabled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			middleware := newCORSMiddleware(tt.cfg, logger)
			if tt.enabled {
				assert.NotNil(t, middleware)
			} else {
				assert.Nil(t, middleware)
			}
		})
	}
}

func TestParseOrigins(t *testing.T) {
	t.Run("Success_TrimsAndDropsEmptyEntries", func(t *testing.T) {
		origins, rejected := parseOrigins(" https://portal.sda-provider.org.au/ ,, http://localhost:5173 ")
		assert.Equal(t, []string{portalOrigin, "http://localhost:5173"}, origins)
		assert.Empty(t, rejected)
	})

	t.Run("Success_EmptyList", func(t *testing.T) {
		origins, rejected := parseOrigins("")
		assert.Nil(t, origins)
		assert.Nil(t, rejected)
	})

	t.Run("Error_InvalidOriginsRejected", func(t *testing.T) {
		invalid := []string{
			"*",
			"https://*.sda-provider.org.au",
			"portal.sda-provider.org.au",
			"ftp://portal.sda-provider.org.au",
			"https://portal.sda-provider.org.au/audit",
			"https://portal.sda-provider.org.au?x=1",
		}
		for _, origin := range invalid {
			origins, rejected := parseOrigins(origin + "," + portalOrigin)
			assert.Equal(t, []string{portalOrigin}, origins, origin)
			assert.Equal(t, []string{origin}, rejected, origin)
		}
	})
}

func TestCORS_AuditRoutes(t *testing.T) {
	enabled := &config.Config{CORSEnabled: true, CORSAllowOrigins: portalOrigin}

	t.Run("Success_AllowedOriginGetsHeaders", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/audit-logs", nil)
		req.Header.Set("Origin", portalOrigin)
		corsRouter(t, enabled).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, portalOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Request-Id")
	})

	t.Run("Success_PreflightAllowsIdentityHeaders", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/v1/audit-logs", nil)
		req.Header.Set("Origin", portalOrigin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers",
			auditHTTP.HeaderOrganizationID+", "+auditHTTP.HeaderUserID+", Content-Type")
		corsRouter(t, enabled).ServeHTTP(w, req)

		require.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, portalOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
		allowed := w.Header().Get("Access-Control-Allow-Headers")
		assert.Contains(t, allowed, http.CanonicalHeaderKey(auditHTTP.HeaderOrganizationID))
		assert.Contains(t, allowed, http.CanonicalHeaderKey(auditHTTP.HeaderUserID))
	})

	t.Run("Error_UnlistedOriginForbidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/audit-logs", nil)
		req.Header.Set("Origin", "https://unknown.example.com")
		corsRouter(t, enabled).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Success_NoHeadersWhenDisabled", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/audit-logs", nil)
		req.Header.Set("Origin", portalOrigin)
		corsRouter(t, &config.Config{CORSAllowOrigins: portalOrigin}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
