// Package web serves the Limited client as navigable HTML views. It renders
// the same flows as the terminal client: catalog browsing, sign-in and
// registration, the investment form, portfolio and profile.
package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bgoutham/limited/internal/gate"
	"github.com/bgoutham/limited/internal/invest"
	"github.com/bgoutham/limited/internal/money"
	"github.com/bgoutham/limited/internal/portfolio"
	"github.com/bgoutham/limited/internal/session"
	"github.com/bgoutham/limited/pkg/api/client"
)

//go:embed templates/*.html
var templateFS embed.FS

// Config wires the web server together.
type Config struct {
	Sessions *session.Manager
	Logger   *slog.Logger
	// RedirectDelay is how long the investment success message stays on
	// screen before the browser follows to the portfolio.
	RedirectDelay time.Duration
}

// Server hosts the web client UI.
type Server struct {
	sessions  *session.Manager
	templates *template.Template
	mux       *http.ServeMux
	logger    *slog.Logger
	delay     time.Duration

	metricsOnce     sync.Once
	metricsReady    bool
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	investResults   *prometheus.CounterVec
}

// New constructs a configured server ready to serve HTTP traffic.
func New(cfg Config) (*Server, error) {
	funcs := template.FuncMap{
		"usd":    money.FormatUSD,
		"usdint": money.FormatUSDInt,
		// Optional dates arrive as *time.Time, so accept both shapes.
		"date": func(v any) string {
			return formatDate(v, "Jan 2, 2006")
		},
		"datelong": func(v any) string {
			return formatDate(v, "January 2, 2006")
		},
	}
	templates, err := template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	delay := cfg.RedirectDelay
	if delay <= 0 {
		delay = invest.DefaultRedirectDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{
		sessions:  cfg.Sessions,
		templates: templates,
		mux:       http.NewServeMux(),
		logger:    logger,
		delay:     delay,
	}
	srv.initMetrics()
	srv.registerRoutes()
	return srv, nil
}

// ServeHTTP conforms to http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.instrument("/", s.handleHome))
	s.mux.HandleFunc("GET /funds", s.instrument("/funds", s.handleFunds))
	s.mux.HandleFunc("GET /companies", s.instrument("/companies", s.handleCompanies))
	s.mux.HandleFunc("GET /deals", s.instrument("/deals", s.handleDeals))
	s.mux.HandleFunc("GET /funds/{id}", s.instrument("/funds/{id}", s.handleFundDetail))
	s.mux.HandleFunc("POST /funds/{id}/invest", s.instrument("/funds/{id}/invest", s.requireAuth(s.handleInvest)))
	s.mux.HandleFunc("GET /portfolio", s.instrument("/portfolio", s.requireAuth(s.handlePortfolio)))
	s.mux.HandleFunc("GET /profile", s.instrument("/profile", s.requireAuth(s.handleProfile)))
	s.mux.HandleFunc("POST /profile", s.instrument("/profile", s.requireAuth(s.handleProfileUpdate)))
	s.mux.HandleFunc("GET /login", s.instrument("/login", s.handleLoginPage))
	s.mux.HandleFunc("POST /login", s.instrument("/login", s.handleLogin))
	s.mux.HandleFunc("GET /register", s.instrument("/register", s.handleRegisterPage))
	s.mux.HandleFunc("POST /register", s.instrument("/register", s.handleRegister))
	s.mux.HandleFunc("POST /logout", s.instrument("/logout", s.handleLogout))
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// requireAuth evaluates the access gate before a participant-only view.
// A still-restoring session renders a neutral loading page rather than
// redirecting on an indeterminate state.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := gate.Check(s.sessions.Status(), r.URL.Path)
		switch result.Decision {
		case gate.Render:
			next(w, r)
		case gate.Redirect:
			http.Redirect(w, r, result.Location, http.StatusSeeOther)
		default:
			s.render(w, "loading", map[string]any{"Title": "Loading"})
		}
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.sessions.API().Featured(r.Context())
	if err != nil {
		s.renderError(w, http.StatusBadGateway, "failed to load the catalog")
		return
	}
	s.render(w, "home", s.viewData(r, map[string]any{
		"Title":   "Limited",
		"Catalog": catalog,
	}))
}

func (s *Server) handleFunds(w http.ResponseWriter, r *http.Request) {
	funds, err := s.sessions.API().Funds(r.Context())
	if err != nil {
		s.renderError(w, http.StatusBadGateway, "failed to load funds")
		return
	}
	s.render(w, "funds", s.viewData(r, map[string]any{
		"Title": "Funds",
		"Funds": funds,
	}))
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.sessions.API().Featured(r.Context())
	if err != nil {
		s.renderError(w, http.StatusBadGateway, "failed to load companies")
		return
	}
	s.render(w, "companies", s.viewData(r, map[string]any{
		"Title":     "Companies",
		"Companies": catalog.AllCompanies,
	}))
}

func (s *Server) handleDeals(w http.ResponseWriter, r *http.Request) {
	catalog, err := s.sessions.API().Featured(r.Context())
	if err != nil {
		s.renderError(w, http.StatusBadGateway, "failed to load deals")
		return
	}
	s.render(w, "deals", s.viewData(r, map[string]any{
		"Title": "Deals",
		"Deals": catalog.AllDeals,
	}))
}

func (s *Server) handleFundDetail(w http.ResponseWriter, r *http.Request) {
	fund, err := s.sessions.API().Fund(r.Context(), r.PathValue("id"))
	if err != nil {
		if client.IsNotFound(err) {
			s.render(w, "fundmissing", s.viewData(r, map[string]any{"Title": "Fund not found"}))
			return
		}
		s.renderError(w, http.StatusBadGateway, "failed to load fund details")
		return
	}
	s.render(w, "fund", s.fundViewData(r, fund, fundViewState{
		amount: strconv.FormatInt(fund.MinInvestment, 10),
	}))
}

type fundViewState struct {
	amount  string
	errMsg  string
	success bool
}

func (s *Server) fundViewData(r *http.Request, fund client.Fund, state fundViewState) map[string]any {
	return s.viewData(r, map[string]any{
		"Title":         fund.Name,
		"Fund":          fund,
		"Amount":        state.amount,
		"Error":         state.errMsg,
		"Success":       state.success,
		"RedirectDelay": int(s.delay.Seconds()),
	})
}

// handleInvest runs one submission attempt through the workflow and
// re-renders the fund view with the resulting phase. The post-success
// portfolio hand-off happens in the browser after the configured delay, so
// navigating away first cancels it.
func (s *Server) handleInvest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, http.StatusBadRequest, "invalid form payload")
		return
	}
	fund, err := s.sessions.API().Fund(r.Context(), r.PathValue("id"))
	if err != nil {
		if client.IsNotFound(err) {
			s.render(w, "fundmissing", s.viewData(r, map[string]any{"Title": "Fund not found"}))
			return
		}
		s.renderError(w, http.StatusBadGateway, "failed to load fund details")
		return
	}

	wf := invest.New(fund, s.sessions.API())
	defer wf.Close()
	wf.SetAmount(r.PostFormValue("amount"))
	err = wf.Submit(r.Context())

	switch {
	case wf.Phase() == invest.PhaseSucceeded:
		s.recordInvestResult("accepted")
		s.render(w, "fund", s.fundViewData(r, fund, fundViewState{
			amount:  wf.Amount(),
			success: true,
		}))
	case err != nil:
		s.recordInvestResult("rejected")
		s.logger.Warn("investment submission failed", "fund_id", fund.ID, "error", err)
		s.render(w, "fund", s.fundViewData(r, fund, fundViewState{
			amount: wf.Amount(),
			errMsg: wf.Err(),
		}))
	default:
		s.recordInvestResult("invalid")
		s.render(w, "fund", s.fundViewData(r, fund, fundViewState{
			amount: wf.Amount(),
			errMsg: wf.Err(),
		}))
	}
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	investments, err := s.sessions.API().Investments(r.Context())
	if err != nil {
		if client.IsUnauthorized(err) {
			http.Redirect(w, r, gate.LoginPath, http.StatusSeeOther)
			return
		}
		s.renderError(w, http.StatusBadGateway, "failed to load your investment data")
		return
	}
	s.render(w, "portfolio", s.viewData(r, map[string]any{
		"Title":       "Your Portfolio",
		"Investments": investments,
		"Summary":     portfolio.Aggregate(investments),
	}))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.sessions.RefreshProfile(r.Context())
	if err != nil {
		// An expired token has already reset the session to anonymous;
		// the gate will route the next attempt to login.
		if client.IsUnauthorized(err) {
			http.Redirect(w, r, gate.LoginPath, http.StatusSeeOther)
			return
		}
		s.renderError(w, http.StatusBadGateway, "failed to load your profile")
		return
	}
	s.render(w, "profile", s.viewData(r, map[string]any{
		"Title":   "Your Profile",
		"Profile": user,
		"Flash":   flashFromRequest(r),
	}))
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, http.StatusBadRequest, "invalid form payload")
		return
	}
	first := r.PostFormValue("first_name")
	last := r.PostFormValue("last_name")
	company := r.PostFormValue("company_name")
	accredited := r.PostFormValue("is_accredited") == "on"
	update := client.ProfileUpdate{
		FirstName:    &first,
		LastName:     &last,
		CompanyName:  &company,
		IsAccredited: &accredited,
	}
	if _, err := s.sessions.UpdateProfile(r.Context(), update); err != nil {
		if client.IsUnauthorized(err) {
			http.Redirect(w, r, gate.LoginPath, http.StatusSeeOther)
			return
		}
		s.logger.Warn("profile update failed", "error", err)
		redirectWithFlash(w, r, "/profile", "Profile update failed. Please try again.")
		return
	}
	redirectWithFlash(w, r, "/profile", "Profile updated")
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.sessions.IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, "login", map[string]any{
		"Title": "Sign in",
		"Flash": flashFromRequest(r),
		"Email": "",
		"Next":  gate.ReturnPath(r.URL.Query()),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, http.StatusBadRequest, "invalid form payload")
		return
	}
	email := r.PostFormValue("email")
	next := gate.ReturnPath(url.Values{gate.NextParam: {r.PostFormValue(gate.NextParam)}})
	if _, err := s.sessions.Login(r.Context(), email, r.PostFormValue("password")); err != nil {
		s.logger.Warn("login failed", "email", email, "error", err)
		s.render(w, "login", map[string]any{
			"Title": "Sign in",
			"Error": loginFailureMessage(err),
			"Email": email,
			"Next":  next,
		})
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if s.sessions.IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, "register", map[string]any{
		"Title": "Create your account",
		"Input": client.RegisterInput{},
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, http.StatusBadRequest, "invalid form payload")
		return
	}
	input := client.RegisterInput{
		Email:        r.PostFormValue("email"),
		Password:     r.PostFormValue("password"),
		FirstName:    r.PostFormValue("first_name"),
		LastName:     r.PostFormValue("last_name"),
		CompanyName:  r.PostFormValue("company_name"),
		UserType:     r.PostFormValue("user_type"),
		IsAccredited: r.PostFormValue("is_accredited") == "on",
	}
	if _, err := s.sessions.Register(r.Context(), input); err != nil {
		s.logger.Warn("registration failed", "email", input.Email, "error", err)
		s.render(w, "register", map[string]any{
			"Title": "Create your account",
			"Error": registrationFailureMessage(err),
			"Input": input,
		})
		return
	}
	// Registration does not authenticate; send the new account to sign in.
	redirectWithFlash(w, r, gate.LoginPath, "Account created. Please sign in.")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout()
	redirectWithFlash(w, r, gate.LoginPath, "Signed out")
}

// viewData layers the shared chrome fields over page data.
func (s *Server) viewData(r *http.Request, data map[string]any) map[string]any {
	user, ok := s.sessions.User()
	data["Authenticated"] = ok
	if ok {
		data["User"] = user
	}
	if _, present := data["Flash"]; !present {
		data["Flash"] = flashFromRequest(r)
	}
	return data
}

func (s *Server) render(w http.ResponseWriter, tpl string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, tpl, data); err != nil {
		s.logger.Error("template render failed", "template", tpl, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	s.logger.Warn("web error", "status", status, "message", message)
	http.Error(w, message, status)
}

func loginFailureMessage(err error) string {
	var apiErr client.APIError
	if client.AsAPIError(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Login failed. Please try again."
}

func registrationFailureMessage(err error) string {
	var apiErr client.APIError
	if client.AsAPIError(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Registration failed"
}

func formatDate(v any, layout string) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(layout)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format(layout)
	default:
		return ""
	}
}

func flashFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("flash"))
}

func redirectWithFlash(w http.ResponseWriter, r *http.Request, target, message string) {
	u, err := url.Parse(target)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	q := u.Query()
	q.Set("flash", message)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}
