package assetcache

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Middleware applies the cache-first policy: an exact match in the
// installed cache is served directly; everything else falls through to
// the next handler unmodified. Fallback responses are not written back
// into the cache.
func (c *Cache) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !c.installed.Load() {
				return next(ctx)
			}
			request := ctx.Request()
			if request.Method != http.MethodGet && request.Method != http.MethodHead {
				return next(ctx)
			}

			contentType, body, ok, err := c.Lookup(request.Context(), request.URL.Path)
			if err != nil {
				slog.Error("asset cache lookup failed", "path", request.URL.Path, "error", err)
				return next(ctx)
			}
			if !ok {
				return next(ctx)
			}
			return ctx.Blob(http.StatusOK, contentType, body)
		}
	}
}
