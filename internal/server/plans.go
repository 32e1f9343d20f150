package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-ingest/internal/common"
	"github.com/joseph-ayodele/invoice-ingest/internal/entity"
	"github.com/joseph-ayodele/invoice-ingest/internal/repository"
)

type PlanHandler struct {
	plans  repository.PlanRepository
	logger *slog.Logger
}

func NewPlanHandler(plans repository.PlanRepository, logger *slog.Logger) *PlanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanHandler{plans: plans, logger: logger}
}

type createPlanRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	v := common.NewValidator()
	v.Field("name", req.Name, common.Required, common.MaxLength(200))
	if v.HasErrors() {
		writeError(w, http.StatusBadRequest, v.ErrorMessage())
		return
	}

	plan, err := h.plans.Create(r.Context(), strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		h.logger.Error("server.plan.create.failed", "req_id", common.RequestIDFromContext(r.Context()), "error", err)
		writeRepoError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, plan)
}

func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.List(r.Context())
	if err != nil {
		h.logger.Error("server.plan.list.failed", "req_id", common.RequestIDFromContext(r.Context()), "error", err)
		writeRepoError(w, err)
		return
	}
	if plans == nil {
		plans = []*entity.ReimbursementPlan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	planID, err := uuid.Parse(chi.URLParam(r, "plan_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "plan_id must be a UUID")
		return
	}

	plan, err := h.plans.GetByID(r.Context(), planID)
	if err != nil {
		writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}
