package httpx

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Request headers understood by SourceAuth and AdminAuth.
const (
	SourceHeader    = "X-ETL-Source"
	APIKeyHeader    = "X-ETL-API-Key"
	SignatureHeader = "X-ETL-Signature"
)

// Context keys set by the middleware.
const (
	ContextSource = "etl.source"
	ContextBody   = "etl.body"
)

// Credential is what SourceAuth needs to know about one caller.
type Credential struct {
	APIKey     string
	HMACSecret string
}

// ComputeSignature returns the lowercase hex encoded HMAC-SHA256 signature for body.
func ComputeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares a received signature with a freshly computed one.
func VerifySignature(secret string, body []byte, candidate string) bool {
	expected, err := hex.DecodeString(ComputeSignature(secret, body))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(candidate, "sha256="))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// SourceAuth checks the source id and API key headers against sources. When
// the source, or the fallback secret, carries an HMAC secret the body must be
// signed. The body is read once and stored under ContextBody.
func SourceAuth(sources map[string]Credential, fallbackSecret string, maxBody int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SourceHeader)
		cred, ok := sources[id]
		if id == "" || !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown source"})
			return
		}
		key := c.GetHeader(APIKeyHeader)
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(cred.APIKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid api key"})
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody+1))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		if int64(len(body)) > maxBody {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		secret := cred.HMACSecret
		if secret == "" {
			secret = fallbackSecret
		}
		if secret != "" {
			sig := c.GetHeader(SignatureHeader)
			if sig == "" || !VerifySignature(secret, body, sig) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
				return
			}
		}
		c.Set(ContextSource, id)
		c.Set(ContextBody, body)
		c.Next()
	}
}

// AdminAuth guards mutating admin routes with a bearer key. An empty key
// disables the check for local development.
func AdminAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin key required"})
			return
		}
		c.Next()
	}
}

// Body returns the request body captured by SourceAuth.
func Body(c *gin.Context) []byte {
	if v, ok := c.Get(ContextBody); ok {
		if b, ok := v.([]byte); ok {
			return b
		}
	}
	return nil
}
