package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"subadmin/internal/api/dto"
	"subadmin/internal/subscription"
	"subadmin/pkg/middleware"
)

type SubscriptionService interface {
	List(ctx context.Context) ([]subscription.Subscription, error)
	Get(ctx context.Context, id int64) (*subscription.Subscription, error)
	Create(ctx context.Context, req dto.SubscriptionRequest) (*subscription.Subscription, error)
	Update(ctx context.Context, id int64, req dto.SubscriptionRequest) (*subscription.Subscription, error)
	Delete(ctx context.Context, id int64) error
}

type Handler struct {
	SubscriptionService SubscriptionService
}

func NewSubscriptionHandler(ss SubscriptionService) *Handler {
	return &Handler{SubscriptionService: ss}
}

// Routes mounts the resource; callers decide the prefix.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.SubscriptionService.List(r.Context())
	if err != nil {
		h.internalError(w, "list subscriptions", err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	sub, err := h.SubscriptionService.Get(r.Context(), id)
	if err != nil {
		h.serviceError(w, "get subscription", err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	sub, err := h.SubscriptionService.Create(r.Context(), req)
	if err != nil {
		h.serviceError(w, "create subscription", err)
		return
	}
	log.Printf("[api] created subscription %d (%s)", sub.ID, sub.Name)
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	sub, err := h.SubscriptionService.Update(r.Context(), id, req)
	if err != nil {
		h.serviceError(w, "update subscription", err)
		return
	}
	log.Printf("[api] updated subscription %d", sub.ID)
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.SubscriptionService.Delete(r.Context(), id); err != nil {
		h.serviceError(w, "delete subscription", err)
		return
	}
	log.Printf("[api] deleted subscription %d", id)
	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		middleware.HandleValidationError(w, errors.New("invalid subscription id"), "id", raw)
		return 0, false
	}
	return id, true
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (dto.SubscriptionRequest, bool) {
	var req dto.SubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.HandleValidationError(w, errors.New("invalid JSON: "+err.Error()), "", "")
		return req, false
	}
	if err := dto.Validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			middleware.HandleValidationError(w, fieldError(fe), fe.Field(), fmtValue(fe.Value()))
			return req, false
		}
		middleware.HandleValidationError(w, err, "", "")
		return req, false
	}
	return req, true
}

func fieldError(fe validator.FieldError) error {
	switch fe.Field() {
	case "name":
		return errors.New("name is required")
	case "price":
		return errors.New("price must be a number")
	case "count":
		return errors.New("count must be a number")
	}
	return errors.New(fe.Field() + " is invalid")
}

func fmtValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case dto.NumericText:
		return string(t)
	}
	return ""
}

func (h *Handler) serviceError(w http.ResponseWriter, action string, err error) {
	if errors.Is(err, subscription.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, middleware.ErrorResponse{Error: err.Error()})
		return
	}
	h.internalError(w, action, err)
}

func (h *Handler) internalError(w http.ResponseWriter, action string, err error) {
	log.Printf("[api] ERROR: %s: %v", action, err)
	writeJSON(w, http.StatusInternalServerError, middleware.ErrorResponse{Error: "failed to " + action})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] failed to write response: %v", err)
	}
}
