package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/averulo-backend/internal/api/httpx"
	"github.com/baharkarakas/averulo-backend/internal/api/validate"
	"github.com/baharkarakas/averulo-backend/internal/models"
	"github.com/baharkarakas/averulo-backend/internal/services"
)

type PropertyHandler struct {
	svc *services.PropertyService
	log *slog.Logger
}

func NewPropertyHandler(svc *services.PropertyService, log *slog.Logger) *PropertyHandler {
	return &PropertyHandler{svc: svc, log: log}
}

type createPropertyReq struct {
	Title        string `json:"title" validate:"required"`
	City         string `json:"city" validate:"required"`
	NightlyPrice int64  `json:"nightlyPrice" validate:"gt=0"`
	Status       string `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}

func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPropertyReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	p, err := h.svc.Create(r.Context(), actor(r), services.CreatePropertyInput{
		Title:        req.Title,
		City:         req.City,
		NightlyPrice: req.NightlyPrice,
		Status:       models.PropertyStatus(req.Status),
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := 1, 20
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	status := models.PropertyStatus(strings.ToUpper(q.Get("status")))

	out, err := h.svc.List(r.Context(), q.Get("city"), status, page, limit)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
