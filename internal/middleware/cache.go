package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const metaKey = "response_meta"

// metaRecord accumulates response metadata while a request is handled.
type metaRecord struct {
	start    time.Time
	cacheHit *bool
}

// ResponseMeta attaches a metadata record to the request so handlers can
// surface cache state and timing in the response envelope.
func ResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(metaKey, &metaRecord{start: time.Now()})
		c.Next()
	}
}

// SetCacheHit records whether the response payload came from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	if rec := record(c); rec != nil {
		rec.cacheHit = &hit
	}
}

// ExtractMeta renders the record as an envelope metadata map. Returns nil
// when the middleware is not installed.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	rec := record(c)
	if rec == nil {
		return nil
	}
	meta := map[string]interface{}{
		"processing_time_ms": time.Since(rec.start).Milliseconds(),
	}
	if rec.cacheHit != nil {
		meta["cache_hit"] = *rec.cacheHit
	}
	return meta
}

func record(c *gin.Context) *metaRecord {
	if c == nil {
		return nil
	}
	if v, exists := c.Get(metaKey); exists {
		if rec, ok := v.(*metaRecord); ok {
			return rec
		}
	}
	return nil
}
