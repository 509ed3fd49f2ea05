package discount

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-promo/internal/common"
)

// Resolver is the solver surface the HTTP handlers depend on.
type Resolver interface {
	Resolve(ctx context.Context, userID int64, lines []OrderLine) ([]Solution, error)
	Calculate(ctx context.Context, userID int64, couponIDs []int64, lines []OrderLine) (Solution, error)
}

// Handler exposes discount resolution endpoints.
type Handler struct {
	Solver   Resolver
	Validate *validator.Validate
}

type availableRequest struct {
	Lines []OrderLine `validate:"required,min=1,dive"`
}

type calculateRequest struct {
	CouponIDs []int64     `json:"couponIds" validate:"required,min=1,dive,gt=0"`
	Courses   []OrderLine `json:"courses" validate:"required,min=1,dive"`
}

type calculateResponse struct {
	IDs            []int64          `json:"ids"`
	Rules          []string         `json:"rules"`
	DiscountAmount int64            `json:"discountAmount"`
	Details        map[string]int64 `json:"details"`
}

// Available returns the best coupon combinations for the posted order lines.
func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	if h.Solver == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount solver not configured", nil)
		return
	}
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}
	var req availableRequest
	if err := json.NewDecoder(r.Body).Decode(&req.Lines); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validator().Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}
	solutions, err := h.Solver.Resolve(r.Context(), userID, req.Lines)
	if err != nil {
		writeSolverError(w, err)
		return
	}
	common.Data(w, http.StatusOK, solutions)
}

// Calculate returns the discount and per-line breakdown for a chosen coupon list.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	if h.Solver == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount solver not configured", nil)
		return
	}
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validator().Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}
	sol, err := h.Solver.Calculate(r.Context(), userID, req.CouponIDs, req.Courses)
	if err != nil {
		writeSolverError(w, err)
		return
	}
	details := make(map[string]int64, len(sol.Details))
	for id, amount := range sol.Details {
		details[strconv.FormatInt(id, 10)] = amount
	}
	common.Data(w, http.StatusOK, calculateResponse{
		IDs:            sol.IDs,
		Rules:          sol.Rules,
		DiscountAmount: sol.DiscountAmount,
		Details:        details,
	})
}

var defaultValidate = validator.New()

func (h *Handler) validator() *validator.Validate {
	if h.Validate != nil {
		return h.Validate
	}
	return defaultValidate
}

func requestUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return 0, false
	}
	return id, true
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = fe.Tag()
	}
	common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed", fields)
}

func writeSolverError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidOrder) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	common.WriteError(w, err, http.StatusInternalServerError, "failed to resolve discount")
}
