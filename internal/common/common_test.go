package common_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-promo/internal/common"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) common.ErrorBody {
	t.Helper()
	var body struct {
		Error common.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}

func TestUserID(t *testing.T) {
	_, ok := common.UserID(context.Background())
	require.False(t, ok)

	_, ok = common.UserID(common.WithUserID(context.Background(), 0))
	require.False(t, ok)

	id, ok := common.UserID(common.WithUserID(context.Background(), 42))
	require.True(t, ok)
	require.Equal(t, int64(42), id)
}

func TestWriteErrorKeepsAppError(t *testing.T) {
	rr := httptest.NewRecorder()
	common.WriteError(rr, common.Unauthorized("token expired", errors.New("exp")), http.StatusInternalServerError, "boom")

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	body := decodeError(t, rr)
	require.Equal(t, "UNAUTHORIZED", body.Code)
	require.Equal(t, "token expired", body.Message)
}

func TestWriteErrorHidesInternalErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	common.WriteError(rr, errors.New("pq: connection refused"), http.StatusInternalServerError, "failed to resolve discount")

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeError(t, rr)
	require.Equal(t, "INTERNAL", body.Code)
	require.Equal(t, "failed to resolve discount", body.Message)
}

func TestData(t *testing.T) {
	rr := httptest.NewRecorder()
	common.Data(rr, http.StatusOK, []int{1, 2})
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.JSONEq(t, `{"data":[1,2]}`, rr.Body.String())
}
