package middleware

import (
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

// DefaultContentSecurityPolicy suits endpoints that only ever return JSON or
// plain text.
const DefaultContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// SecurityHeaders adds common security headers to the response. An empty csp
// selects DefaultContentSecurityPolicy.
func SecurityHeaders(csp string) gin.HandlerFunc {
	if csp == "" {
		csp = DefaultContentSecurityPolicy
	}
	return secure.New(secure.Config{
		// HSTS is only sent on TLS requests, including those terminated by a proxy.
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		IENoOpen:              true,
		ContentSecurityPolicy: csp,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})
}
