package httpgin

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// writeView writes v inside a success envelope with a weak ETag. Views are
// per-client state, so caches must revalidate every time. A matching
// If-None-Match yields 304.
func writeView(c *gin.Context, v any) {
	b, err := json.Marshal(ok(v))
	if err != nil {
		c.JSON(http.StatusInternalServerError, failure("An unexpected error occurred."))
		return
	}
	sum := sha256.Sum256(b)
	tag := `W/"` + hex.EncodeToString(sum[:16]) + `"`

	c.Header("ETag", tag)
	c.Header("Cache-Control", "private, no-cache")
	if c.GetHeader("If-None-Match") == tag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", b)
}
