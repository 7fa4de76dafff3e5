package frontend

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/asampayo00/plus/internal/core"
	"github.com/labstack/echo/v4"
)

const (
	MainPageName = "index.html"
	mimePNG      = "image/png"
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

// GenerateRequest is the bound form body of the generate action.
type GenerateRequest struct {
	Style string `form:"style" validate:"required"`
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	// Create template renderer; a malformed page template is a startup
	// failure, nothing interactive gets wired on top of it
	e.Renderer = &Template{
		templates: template.Must(template.New("").ParseFS(assetsFS, viewsPattern)),
	}

	e.GET("/", service.rootRedirectHandler) // Redirect root to index.html
	e.GET("/"+MainPageName, service.indexHandler)

	e.POST("/htmx/uploadImage", service.htmxUploadImageHandler)
	e.POST("/htmx/generate", service.htmxGenerateHandler)
	e.GET("/htmx/preview", service.htmxPreviewHandler)
	e.GET("/htmx/result", service.htmxResultHandler)
	e.GET("/download", service.downloadHandler)

	// Routes for listing, fetching by ID, and deleting past generations
	e.GET("/htmx/history", service.htmxHistoryListHandler)
	e.GET("/htmx/history/:id", service.htmxHistoryImageHandler)
	e.DELETE("/htmx/history/:id", service.htmxDeleteHistoryHandler)

	// App shell assets
	e.GET("/icon.svg", service.iconHandler)
	e.GET("/style.css", service.staticAssetHandler("views/style.css", "text/css"))
	e.GET("/app.js", service.staticAssetHandler("views/app.js", "application/javascript"))
	e.GET("/sw.js", service.serviceWorkerHandler)
	e.GET("/vendor/htmx.min.js", service.vendorScriptHandler)
}

type indexData struct {
	Styles []string
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, MainPageName, indexData{Styles: service.coreService.Styles()})
}

func (service *FrontendService) htmxUploadImageHandler(ctx echo.Context) error {
	// Get uploaded file
	file, err := ctx.FormFile("image")
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to get uploaded file",
			"status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Failed to get uploaded file")
	}

	src, err := file.Open()
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to open uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.String(http.StatusInternalServerError, "Failed to read uploaded file")
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("htmxUploadImageHandler: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	// Read file content reliably
	image, err := io.ReadAll(src)
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to read uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return ctx.String(http.StatusInternalServerError, "Failed to read uploaded file")
	}

	mimeType := http.DetectContentType(image)
	if !strings.HasPrefix(mimeType, "image/") {
		// A prior upload, if any, stays untouched
		slog.Warn("htmxUploadImageHandler: unsupported file type",
			"status", http.StatusBadRequest, "mime_type", mimeType, "filename", file.Filename)
		return ctx.String(http.StatusBadRequest, "Failed to read uploaded file")
	}

	service.coreService.Workflow().SetUpload(mimeType, image)

	ts := service.timestampNanoStr()
	previewOOB := fmt.Sprintf(
		`<div id="preview" hx-swap-oob="true"><img src="/htmx/preview?ts=%s" alt="Upload preview"></div>`, ts)
	html := fmt.Sprintf(`<div id="upload-result">Ready: %s</div>%s`,
		template.HTMLEscapeString(file.Filename), previewOOB)
	return ctx.HTML(http.StatusOK, html)
}

func (service *FrontendService) htmxGenerateHandler(ctx echo.Context) error {
	request := new(GenerateRequest)
	if err := ctx.Bind(request); err != nil {
		slog.Error("htmxGenerateHandler: failed to bind request",
			"status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Invalid request")
	}
	if err := ctx.Validate(request); err != nil {
		return err
	}
	if !service.coreService.HasStyle(request.Style) {
		slog.Warn("htmxGenerateHandler: unknown style",
			"status", http.StatusBadRequest, "style", request.Style)
		return ctx.String(http.StatusBadRequest, "Unknown style")
	}

	result, err := service.coreService.Generate(ctx.Request().Context(), request.Style)
	if err != nil {
		return service.generateErrorResponse(ctx, err)
	}

	ts := service.timestampNanoStr()
	historyOOB := service.historyListOOB(ts)
	html := fmt.Sprintf(`<div id="output">
	<img src="/htmx/result?ts=%s" alt="Stylized result (%s)">
	<a href="/download" role="button" id="download-link">Download</a>
</div>%s`, ts, template.HTMLEscapeString(result.Style), historyOOB)
	return ctx.HTML(http.StatusOK, html)
}

func (service *FrontendService) generateErrorResponse(ctx echo.Context, err error) error {
	switch {
	case errors.Is(err, core.ErrMissingInput):
		slog.Warn("htmxGenerateHandler: no image uploaded", "status", http.StatusBadRequest)
		return ctx.String(http.StatusBadRequest, "Please upload an image first")
	case errors.Is(err, core.ErrBusy):
		slog.Warn("htmxGenerateHandler: generation already in progress", "status", http.StatusConflict)
		return ctx.String(http.StatusConflict, "A generation is already in progress")
	default:
		slog.Error("htmxGenerateHandler: generation failed",
			"status", http.StatusBadGateway, "error", err)
		return ctx.String(http.StatusBadGateway, "The model did not return an image. Please try again.")
	}
}

func (service *FrontendService) htmxPreviewHandler(ctx echo.Context) error {
	upload := service.coreService.Workflow().Upload()
	if upload == nil {
		slog.Warn("htmxPreviewHandler: no upload available", "status", http.StatusNotFound)
		return ctx.String(http.StatusNotFound, "No image uploaded")
	}

	thumbnail, err := service.coreService.Thumbnail(upload.Data)
	if err != nil {
		slog.Error("htmxPreviewHandler: thumbnail not available",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Thumbnail not available")
	}

	// Prevent caching
	service.setNoCache(ctx)

	return ctx.Blob(http.StatusOK, mimePNG, thumbnail)
}

func (service *FrontendService) htmxResultHandler(ctx echo.Context) error {
	result := service.coreService.Workflow().Result()
	if result == nil {
		slog.Warn("htmxResultHandler: no result available", "status", http.StatusNotFound)
		return ctx.String(http.StatusNotFound, "No stylized image available")
	}

	// Prevent caching so the latest result is always shown
	service.setNoCache(ctx)

	return ctx.Blob(http.StatusOK, result.MimeType, result.Data)
}

func (service *FrontendService) downloadHandler(ctx echo.Context) error {
	result := service.coreService.Workflow().Result()
	if result == nil {
		slog.Warn("downloadHandler: no result available", "status", http.StatusNotFound)
		return ctx.String(http.StatusNotFound, "No stylized image available")
	}

	filename := DownloadFilename(result.MimeType, time.Now())
	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return ctx.Blob(http.StatusOK, result.MimeType, result.Data)
}

func (service *FrontendService) htmxHistoryListHandler(ctx echo.Context) error {
	listHTML, err := service.buildHistoryListHTML(service.timestampNanoStr())
	if err != nil {
		slog.Error("htmxHistoryListHandler: failed to list generations",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to list generations")
	}

	// Prevent caching so the latest records are always shown
	service.setNoCache(ctx)

	return ctx.HTML(http.StatusOK, listHTML)
}

func (service *FrontendService) htmxHistoryImageHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	if id == "" {
		slog.Warn("htmxHistoryImageHandler: missing record id",
			"status", http.StatusBadRequest,
			"route", "/htmx/history/:id")
		return ctx.String(http.StatusBadRequest, "Missing record ID")
	}

	record, err := service.coreService.History().GetRecordByID(id)
	if err != nil || record == nil || len(record.Result) == 0 {
		slog.Warn("htmxHistoryImageHandler: record not available",
			"status", http.StatusNotFound, "record_id", id, "error", err)
		return ctx.String(http.StatusNotFound, "Image not available")
	}

	service.setNoCache(ctx)

	return ctx.Blob(http.StatusOK, record.ResultMime, record.Result)
}

func (service *FrontendService) htmxDeleteHistoryHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	if id == "" {
		slog.Warn("htmxDeleteHistoryHandler: missing record id",
			"status", http.StatusBadRequest,
			"route", "/htmx/history/:id")
		return ctx.String(http.StatusBadRequest, "Missing record ID")
	}

	if err := service.coreService.History().DeleteRecord(id); err != nil {
		slog.Error("htmxDeleteHistoryHandler: failed to delete record",
			"status", http.StatusInternalServerError, "record_id", id, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to delete record")
	}

	listHTML, err := service.buildHistoryListHTML(service.timestampNanoStr())
	if err != nil {
		slog.Error("htmxDeleteHistoryHandler: failed to list generations after delete",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to list generations")
	}

	service.setNoCache(ctx)

	return ctx.HTML(http.StatusOK, listHTML)
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func (service *FrontendService) timestampNanoStr() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

func (service *FrontendService) historyListOOB(ts string) string {
	listHTML, err := service.buildHistoryListHTML(ts)
	if err != nil {
		// If building the list fails, the primary response still stands
		slog.Error("historyListOOB: failed to list generations", "error", err)
		return ""
	}
	return fmt.Sprintf(`<div id="history-list" hx-swap-oob="true">%s</div>`, listHTML)
}

func (service *FrontendService) buildHistoryListHTML(ts string) (string, error) {
	records, err := service.coreService.History().ListRecords()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if len(records) == 0 {
		b.WriteString(`<p>No generations yet.</p>`)
		return b.String(), nil
	}

	b.WriteString(`<div class="vertical-list" id="history-sort-list">`)
	for _, record := range records {
		b.WriteString(fmt.Sprintf(`<div class="vertical-item" data-id="%s"><article>
	<img src="/htmx/history/%s?ts=%s" alt="Stylized as %s" loading="lazy">
	<footer>
		<small>%s &middot; %s</small>
		<button hx-delete="/htmx/history/%s" hx-target="#history-list" hx-swap="innerHTML" class="secondary">Delete</button>
	</footer>
</article></div>`,
			record.ID, record.ID, ts,
			template.HTMLEscapeString(record.Style),
			template.HTMLEscapeString(record.Style),
			record.CreatedAt.Format("2006-01-02 15:04"),
			record.ID))
	}
	b.WriteString(`</div>`)
	return b.String(), nil
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := assetsFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("iconHandler: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", data)
}

func (service *FrontendService) staticAssetHandler(path, contentType string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		data, err := assetsFS.ReadFile(path)
		if err != nil {
			slog.Error("staticAssetHandler: failed to read asset",
				"status", http.StatusInternalServerError, "asset", path, "error", err)
			return ctx.String(http.StatusInternalServerError, "Failed to load asset")
		}
		return ctx.Blob(http.StatusOK, contentType, data)
	}
}

// serviceWorkerHandler serves the worker from the root path so its scope
// covers the entire application.
func (service *FrontendService) serviceWorkerHandler(ctx echo.Context) error {
	data, err := assetsFS.ReadFile("views/sw.js")
	if err != nil {
		slog.Error("serviceWorkerHandler: failed to read sw.js",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load service worker")
	}
	ctx.Response().Header().Set("Service-Worker-Allowed", "/")
	ctx.Response().Header().Set("Cache-Control", "no-cache")
	return ctx.Blob(http.StatusOK, "application/javascript", data)
}

// vendorScriptHandler is the network fallback for the external script:
// when the asset cache middleware has no entry for it, the script is
// fetched from its upstream URL at request time.
func (service *FrontendService) vendorScriptHandler(ctx echo.Context) error {
	upstream := ""
	for _, entry := range service.config.AssetCache.Manifest {
		if entry.Path == ctx.Request().URL.Path && entry.URL != "" {
			upstream = entry.URL
			break
		}
	}
	if upstream == "" {
		slog.Warn("vendorScriptHandler: no upstream configured",
			"status", http.StatusNotFound, "path", ctx.Request().URL.Path)
		return ctx.String(http.StatusNotFound, "Unknown vendor asset")
	}

	request, err := http.NewRequestWithContext(ctx.Request().Context(), http.MethodGet, upstream, nil)
	if err != nil {
		return ctx.String(http.StatusInternalServerError, "Failed to load vendor asset")
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		slog.Error("vendorScriptHandler: upstream fetch failed",
			"status", http.StatusBadGateway, "url", upstream, "error", err)
		return ctx.String(http.StatusBadGateway, "Failed to load vendor asset")
	}
	defer func() {
		_ = response.Body.Close()
	}()
	if response.StatusCode != http.StatusOK {
		slog.Error("vendorScriptHandler: unexpected upstream status",
			"status", http.StatusBadGateway, "url", upstream, "upstream_status", response.StatusCode)
		return ctx.String(http.StatusBadGateway, "Failed to load vendor asset")
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return ctx.String(http.StatusBadGateway, "Failed to load vendor asset")
	}
	return ctx.Blob(http.StatusOK, "application/javascript", body)
}

// AssetResolver resolves app-shell manifest paths for the asset cache
// install phase.
func (service *FrontendService) AssetResolver() func(path string) (string, []byte, error) {
	return func(path string) (string, []byte, error) {
		switch path {
		case "/", "/" + MainPageName:
			var buf bytes.Buffer
			tmpl := template.Must(template.New("").ParseFS(assetsFS, viewsPattern))
			if err := tmpl.ExecuteTemplate(&buf, MainPageName, indexData{Styles: service.coreService.Styles()}); err != nil {
				return "", nil, err
			}
			return "text/html; charset=utf-8", buf.Bytes(), nil
		case "/style.css":
			return readEmbedded("views/style.css", "text/css")
		case "/app.js":
			return readEmbedded("views/app.js", "application/javascript")
		case "/icon.svg":
			return readEmbedded("views/icon.svg", "image/svg+xml")
		default:
			return "", nil, fmt.Errorf("unknown app shell asset: %s", path)
		}
	}
}

func readEmbedded(path, contentType string) (string, []byte, error) {
	data, err := assetsFS.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	return contentType, data, nil
}
