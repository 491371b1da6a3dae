package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sjsage522/stockwatcher/internal/monitor"
	"sjsage522/stockwatcher/internal/store"
	"sjsage522/stockwatcher/logger"
	apperr "sjsage522/stockwatcher/pkg/errors"
)

// Server exposes the monitoring trigger and the read contracts consumed
// by the UI layer.
type Server struct {
	store    store.Store
	orch     *monitor.Orchestrator
	notifier *monitor.Detector
	log      *logger.Logger
	started  time.Time
}

// New creates the HTTP surface
func New(st store.Store, orch *monitor.Orchestrator, notifier *monitor.Detector) *Server {
	return &Server{
		store:    st,
		orch:     orch,
		notifier: notifier,
		log:      logger.ForServer(),
		started:  time.Now(),
	}
}

// Router builds the chi router
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/monitor", s.handleMonitor)
		r.Get("/monitor", s.handleMonitor) // manual trigger

		r.Get("/notifications", s.handleListNotifications)
		r.Post("/notifications/read", s.handleMarkRead)

		r.Get("/items/{id}/history", s.handleItemHistory)
		r.Post("/items/{id}/sources", s.handleCreateSource)
		r.Post("/items/{id}/inventory", s.handleUpdateInventory)

		r.Get("/health", s.handleHealth)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

type monitorResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	trigger := "manual"
	if r.Method == http.MethodPost {
		trigger = "scheduled"
	}

	summary, err := s.orch.Run(r.Context(), trigger)
	timestamp := time.Now().UTC().Format(time.RFC3339)

	if errors.Is(err, monitor.ErrRunInProgress) {
		writeJSON(w, http.StatusOK, monitorResponse{
			Success:   true,
			Message:   "A monitoring run is already in progress, skipped",
			Timestamp: timestamp,
		})
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Monitoring run failed")
		writeJSON(w, http.StatusInternalServerError, monitorResponse{
			Success:   false,
			Error:     err.Error(),
			Timestamp: timestamp,
		})
		return
	}

	writeJSON(w, http.StatusOK, monitorResponse{
		Success: true,
		Message: "Inventory monitoring completed successfully (" +
			strconv.Itoa(summary.ItemsChecked) + " items checked)",
		Timestamp: timestamp,
	})
}

type notificationPayload struct {
	ID        string `json:"id"`
	ItemID    string `json:"itemId"`
	Kind      string `json:"type"`
	Message   string `json:"message"`
	IsRead    bool   `json:"isRead"`
	CreatedAt string `json:"createdAt"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := s.store.ListNotifications(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch notifications")
		return
	}

	payload := make([]notificationPayload, 0, len(notifications))
	for _, n := range notifications {
		payload = append(payload, notificationPayload{
			ID:        n.ID,
			ItemID:    n.ItemID,
			Kind:      string(n.Kind),
			Message:   n.Message,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.store.MarkNotificationsRead(r.Context(), body.IDs); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to mark notifications as read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type observationPayload struct {
	Price      string `json:"price"`
	Source     string `json:"source"`
	InStock    bool   `json:"inStock"`
	StockCount *int   `json:"stockCount,omitempty"`
	ObservedAt string `json:"observedAt"`
}

func (s *Server) handleItemHistory(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	observations, err := s.store.ItemObservations(r.Context(), itemID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}

	payload := make([]observationPayload, 0, len(observations))
	for _, obs := range observations {
		payload = append(payload, observationPayload{
			Price:      obs.Price.StringFixed(2),
			Source:     obs.Source,
			InStock:    obs.InStock,
			StockCount: obs.StockCount,
			ObservedAt: obs.ObservedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

type createSourceRequest struct {
	SiteName       string `json:"siteName"`
	SiteType       string `json:"siteType"`
	URL            string `json:"url"`
	PriceSelector  string `json:"priceSelector"`
	StockSelector  string `json:"stockSelector"`
	TitleSelector  string `json:"titleSelector"`
	ImageSelector  string `json:"imageSelector"`
	CheckFrequency int    `json:"checkFrequency"`
}

// validate enforces required fields at the creation boundary, so the
// extraction loop never has to re-check them
func (req *createSourceRequest) validate() error {
	if req.SiteName == "" {
		return apperr.NewValidation("siteName", "siteName is required")
	}
	if req.URL == "" {
		return apperr.NewValidation("url", "url is required")
	}
	if u, err := url.Parse(req.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return apperr.NewValidation("url", "url must be absolute")
	}
	if req.SiteType != "" && !store.ValidSiteType(store.SiteType(req.SiteType)) {
		return apperr.NewValidation("siteType", "unknown site type")
	}
	if req.CheckFrequency < 0 {
		return apperr.NewValidation("checkFrequency", "checkFrequency must be at least 1 minute")
	}
	return nil
}

func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var req createSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.store.GetItem(r.Context(), itemID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load item")
		return
	}

	siteType := store.SiteType(req.SiteType)
	if req.SiteType == "" {
		siteType = store.SiteTypeRetailer
	}
	frequency := req.CheckFrequency
	if frequency == 0 {
		frequency = 60
	}

	src := &store.Source{
		ID:             uuid.NewString(),
		ItemID:         itemID,
		SiteName:       req.SiteName,
		SiteType:       siteType,
		URL:            req.URL,
		PriceSelector:  req.PriceSelector,
		StockSelector:  req.StockSelector,
		TitleSelector:  req.TitleSelector,
		ImageSelector:  req.ImageSelector,
		CheckFrequency: frequency,
		IsActive:       true,
	}
	if err := s.store.CreateSource(r.Context(), src); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create source")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": src.ID})
}

func (s *Server) handleUpdateInventory(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var body struct {
		Level  *int   `json:"level"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Level == nil {
		writeError(w, http.StatusBadRequest, "level is required")
		return
	}
	if *body.Level < 0 {
		writeError(w, http.StatusBadRequest, "level must not be negative")
		return
	}

	if err := s.notifier.UpdateInventoryLevel(r.Context(), itemID, *body.Level, body.Reason); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		s.log.Error().Err(err).Str("item_id", itemID).Msg("Inventory update failed")
		writeError(w, http.StatusInternalServerError, "failed to update inventory")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
