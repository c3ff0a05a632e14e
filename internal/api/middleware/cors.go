package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// devOrigins are always trusted outside the "false" setting so local
// frontends keep working without configuration.
var devOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}

// TrustedOrigins parses the CORS origin setting.
//
//	""        -> development defaults (localhost on any port)
//	"true"    -> every origin
//	"false"   -> no origin
//	otherwise -> comma-separated origin list plus the development defaults
//
// Entries may contain "*" wildcards, e.g. "https://*.example.com".
func TrustedOrigins(raw string) []string {
	switch strings.TrimSpace(raw) {
	case "":
		return append([]string(nil), devOrigins...)
	case "true":
		return []string{"*"}
	case "false":
		return nil
	}

	origins := append([]string(nil), devOrigins...)
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// CORS builds the CORS middleware for the given trusted origins. Requests
// without an Origin header are not CORS requests and always pass.
func CORS(origins []string) gin.HandlerFunc {
	patterns := make([]*regexp.Regexp, 0, len(origins))
	allowAll := false
	for _, o := range origins {
		if o == "*" {
			allowAll = true
			continue
		}
		patterns = append(patterns, originPattern(o))
	}

	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: !allowAll,
		MaxAge:           12 * time.Hour,
		AllowOriginFunc: func(origin string) bool {
			if allowAll {
				return true
			}
			for _, p := range patterns {
				if p.MatchString(origin) {
					return true
				}
			}
			return false
		},
	}
	return cors.New(cfg)
}

// originPattern compiles one origin entry, treating "*" as a wildcard
// segment.
func originPattern(origin string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(origin)
	quoted = strings.ReplaceAll(quoted, `\*`, `.*`)
	return regexp.MustCompile("^" + quoted + "$")
}
