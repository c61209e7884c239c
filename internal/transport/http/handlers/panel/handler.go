// Package panelhandler serves the bonus dashboard, its JSON API and the PDF
// statements.
package panelhandler

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/godilite/bonus-panel/internal/report"
	"github.com/godilite/bonus-panel/internal/service"
	"github.com/godilite/bonus-panel/internal/sheet"
	"github.com/godilite/bonus-panel/internal/transport/http/api"
	"github.com/godilite/bonus-panel/internal/transport/http/middleware"
	"github.com/godilite/bonus-panel/pkg/cache"
)

const (
	defaultCacheTTL = 10 * time.Minute
	requestTimeout  = 15 * time.Second
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboardTemplate = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"brl":  report.FormatBRL,
	"pct":  report.FormatPercent,
	"join": strings.Join,
	"title": func(s string) string {
		return cases.Title(language.BrazilianPortuguese).String(strings.ToLower(s))
	},
	"statementURL": statementURL,
}).ParseFS(templateFS, "templates/dashboard.html"))

// Service is what the handler needs from the bonus service.
type Service interface {
	Panel(ctx context.Context, period string, filter report.Filter) (report.Panel, error)
	FilterOptions(ctx context.Context, period string) (report.Options, error)
	Card(ctx context.Context, period, name string) (report.Card, error)
	Fingerprint() string
}

type Handler struct {
	svc     Service
	cache   cache.Cacher
	sfGroup singleflight.Group
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler builds the handler. A nil cache disables caching.
func NewHandler(svc Service, c cache.Cacher, logger *zap.Logger, ttl time.Duration) *Handler {
	if svc == nil {
		panic("nil Service provided to NewHandler")
	}
	if c == nil {
		c = cache.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Handler{
		svc:    svc,
		cache:  c,
		ttl:    ttl,
		logger: logger.Named("panel-handler"),
		now:    time.Now,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleDashboard)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/panel", h.handlePanel)
		r.Get("/options", h.handleOptions)
		r.Get("/statements/{period}/{name}", h.handleStatement)
	})
}

func parseQuery(r *http.Request) (string, report.Filter) {
	q := r.URL.Query()
	return strings.TrimSpace(q.Get("period")), report.Filter{
		Name:   strings.TrimSpace(q.Get("name")),
		Role:   strings.TrimSpace(q.Get("role")),
		City:   strings.TrimSpace(q.Get("city")),
		Tenure: strings.TrimSpace(q.Get("tenure")),
	}
}

func (h *Handler) panel(ctx context.Context, period string, filter report.Filter) (report.Panel, error) {
	key := service.PanelCacheKey(h.svc.Fingerprint(), period, filter)
	return cache.FindAndCache(ctx, h.cache, &h.sfGroup, key, h.ttl, true, h.logger, func(fetchCtx context.Context) (report.Panel, error) {
		return h.svc.Panel(fetchCtx, period, filter)
	})
}

func (h *Handler) options(ctx context.Context, period string) (report.Options, error) {
	key := service.OptionsCacheKey(h.svc.Fingerprint(), period)
	return cache.FindAndCache(ctx, h.cache, &h.sfGroup, key, h.ttl, true, h.logger, func(fetchCtx context.Context) (report.Options, error) {
		return h.svc.FilterOptions(fetchCtx, period)
	})
}

// statusFor maps service errors to an HTTP status and an error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrUnknownPeriod):
		return http.StatusBadRequest, "invalid_period"
	case errors.Is(err, service.ErrNoRecords):
		return http.StatusNotFound, "no_records"
	case errors.Is(err, service.ErrEmployeeNotFound):
		return http.StatusNotFound, "employee_not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
		msg = "internal error"
	}
	api.Fail(w, status, code, msg, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePanel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	period, filter := parseQuery(r)
	p, err := h.panel(ctx, period, filter)
	if err != nil {
		h.fail(w, r, "panel", err)
		return
	}
	api.Success(w, p, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleOptions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	period, _ := parseQuery(r)
	opts, err := h.options(ctx, period)
	if err != nil {
		h.fail(w, r, "options", err)
		return
	}
	api.Success(w, opts, middleware.GetRequestID(r.Context()))
}

type dashboardView struct {
	Panel   report.Panel
	Options report.Options
	Error   string
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	period, filter := parseQuery(r)
	status := http.StatusOK
	view := dashboardView{Panel: report.Panel{Period: period, Filter: filter}}

	p, err := h.panel(ctx, period, filter)
	if err != nil {
		status, _ = statusFor(err)
		view.Error = err.Error()
		if status == http.StatusInternalServerError {
			h.logger.Error("dashboard failed", zap.Error(err))
			view.Error = "Não foi possível carregar o painel."
		}
	} else {
		view.Panel = p
	}

	// An unknown period still gets the quarter's options so the form can recover.
	optsPeriod := period
	if err != nil {
		optsPeriod = ""
	}
	if opts, optsErr := h.options(ctx, optsPeriod); optsErr == nil {
		view.Options = opts
	} else {
		h.logger.Warn("filter options unavailable", zap.Error(optsErr))
	}

	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, view); err != nil {
		h.logger.Error("render dashboard", zap.Error(err))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	period, err := url.PathUnescape(chi.URLParam(r, "period"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_path", "bad period", middleware.GetRequestID(r.Context()))
		return
	}
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || strings.TrimSpace(name) == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_path", "bad employee name", middleware.GetRequestID(r.Context()))
		return
	}

	card, err := h.svc.Card(ctx, period, name)
	if err != nil {
		h.fail(w, r, "statement", err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteStatement(&buf, card, h.now()); err != nil {
		h.fail(w, r, "statement", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", statementFilename(card)))
	_, _ = w.Write(buf.Bytes())
}

func statementURL(period, name string) string {
	return "/api/v1/statements/" + url.PathEscape(period) + "/" + url.PathEscape(name)
}

// statementFilename is ASCII only: "extrato-julho-joao-silva.pdf".
func statementFilename(c report.Card) string {
	base := strings.ToLower(sheet.Fold(c.Period + " " + c.Name))
	return "extrato-" + strings.ReplaceAll(base, " ", "-") + ".pdf"
}
