package http

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	auditHTTP "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/http"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/config"
)

const corsMaxAge = 12 * time.Hour

// corsAllowedHeaders are the request headers a browser client may send: the caller identity
// headers the audit routes read plus the JSON content type.
var corsAllowedHeaders = []string{
	"Content-Type",
	auditHTTP.HeaderOrganizationID,
	auditHTTP.HeaderUserID,
	auditHTTP.HeaderUserEmail,
	auditHTTP.HeaderUserName,
}

// newCORSMiddleware returns the CORS middleware for the audit API, or nil when CORS_ENABLED is
// false or CORS_ALLOW_ORIGINS holds no usable origin. CORS stays off for the usual deployment
// where backend services forward identity headers; it is only for browser clients.
func newCORSMiddleware(cfg *config.Config, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.CORSEnabled {
		return nil
	}

	origins, rejected := parseOrigins(cfg.CORSAllowOrigins)
	for _, origin := range rejected {
		logger.Warn("ignoring invalid CORS origin", slog.String("origin", origin))
	}
	if len(origins) == 0 {
		logger.Warn("CORS enabled but CORS_ALLOW_ORIGINS has no valid origin; CORS not applied")
		return nil
	}

	logger.Info("CORS enabled", slog.Any("origins", origins))

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE"},
		AllowHeaders:     corsAllowedHeaders,
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	})
}

// parseOrigins splits a comma-separated origin list. An origin must be an http or https
// scheme and host with no path, query or wildcard; anything else is returned in rejected.
func parseOrigins(list string) (origins, rejected []string) {
	for part := range strings.SplitSeq(list, ",") {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if !validOrigin(origin) {
			rejected = append(rejected, origin)
			continue
		}
		origins = append(origins, strings.TrimSuffix(origin, "/"))
	}
	return origins, rejected
}

func validOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" || strings.Contains(u.Host, "*") {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return (u.Path == "" || u.Path == "/") && u.RawQuery == "" && u.Fragment == "" && u.User == nil
}
