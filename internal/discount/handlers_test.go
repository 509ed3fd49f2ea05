package discount_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-promo/internal/common"
	"github.com/noah-isme/toko-promo/internal/discount"
)

type stubResolver struct {
	solutions []discount.Solution
	solution  discount.Solution
	err       error
	gotUser   int64
	gotIDs    []int64
}

func (s *stubResolver) Resolve(_ context.Context, userID int64, _ []discount.OrderLine) ([]discount.Solution, error) {
	s.gotUser = userID
	return s.solutions, s.err
}

func (s *stubResolver) Calculate(_ context.Context, userID int64, ids []int64, _ []discount.OrderLine) (discount.Solution, error) {
	s.gotUser = userID
	s.gotIDs = ids
	return s.solution, s.err
}

func authed(req *http.Request, userID int64) *http.Request {
	return req.WithContext(common.WithUserID(req.Context(), userID))
}

func TestAvailableReturnsSolutions(t *testing.T) {
	stub := &stubResolver{solutions: []discount.Solution{{IDs: []int64{1}, Rules: []string{"r"}, DiscountAmount: 200, Details: map[int64]int64{1: 200}}}}
	h := &discount.Handler{Solver: stub}
	body := `[{"id":1,"cateId":1,"price":1000},{"id":2,"cateId":1,"price":500}]`
	rr := httptest.NewRecorder()

	h.Available(rr, authed(httptest.NewRequest(http.MethodPost, "/api/v1/user-coupons/available", strings.NewReader(body)), 42))

	require.Equal(t, http.StatusOK, rr.Code)
	require.EqualValues(t, 42, stub.gotUser)
	var resp struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.EqualValues(t, 200, resp.Data[0]["discountAmount"])
	require.NotContains(t, resp.Data[0], "Details")
}

func TestAvailableRequiresUser(t *testing.T) {
	h := &discount.Handler{Solver: &stubResolver{}}
	rr := httptest.NewRecorder()
	h.Available(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`[]`)))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAvailableValidatesLines(t *testing.T) {
	h := &discount.Handler{Solver: &stubResolver{}}
	for _, body := range []string{`[]`, `[{"id":1,"price":-5}]`, `not json`} {
		rr := httptest.NewRecorder()
		h.Available(rr, authed(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), 42))
		require.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestAvailableMapsSolverErrors(t *testing.T) {
	body := `[{"id":1,"cateId":1,"price":1000}]`

	rr := httptest.NewRecorder()
	h := &discount.Handler{Solver: &stubResolver{err: discount.ErrInvalidOrder}}
	h.Available(rr, authed(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), 42))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h = &discount.Handler{Solver: &stubResolver{err: errors.New("boom")}}
	h.Available(rr, authed(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), 42))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestCalculateReturnsDetails(t *testing.T) {
	stub := &stubResolver{solution: discount.Solution{IDs: []int64{3}, Rules: []string{"r"}, DiscountAmount: 90, Details: map[int64]int64{10: 60, 11: 30}}}
	h := &discount.Handler{Solver: stub}
	body := `{"couponIds":[3],"courses":[{"id":10,"cateId":1,"price":600},{"id":11,"cateId":2,"price":300}]}`
	rr := httptest.NewRecorder()

	h.Calculate(rr, authed(httptest.NewRequest(http.MethodPost, "/api/v1/user-coupons/discount", strings.NewReader(body)), 42))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, []int64{3}, stub.gotIDs)
	var resp struct {
		Data struct {
			DiscountAmount int64            `json:"discountAmount"`
			Details        map[string]int64 `json:"details"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.EqualValues(t, 90, resp.Data.DiscountAmount)
	require.Equal(t, map[string]int64{"10": 60, "11": 30}, resp.Data.Details)
}

func TestCalculateValidation(t *testing.T) {
	h := &discount.Handler{Solver: &stubResolver{}}
	rr := httptest.NewRecorder()
	h.Calculate(rr, authed(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"couponIds":[],"courses":[]}`)), 42))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var resp map[string]common.ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "VALIDATION_FAILED", resp["error"].Code)
}
