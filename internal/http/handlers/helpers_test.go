package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"fleet/internal/modules/dispatch"
	"fleet/internal/modules/driver"
	"fleet/internal/modules/geo"
	"fleet/internal/modules/order"
)

func recordStatus(write func(*gin.Context)) int {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	write(c)
	return w.Code
}

func TestWriteOrderError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{order.ErrBadRequest, http.StatusBadRequest},
		{driver.ErrBadRequest, http.StatusBadRequest},
		{geo.ErrInvalidArgument, http.StatusBadRequest},
		{order.ErrNotFound, http.StatusNotFound},
		{driver.ErrNotFound, http.StatusNotFound},
		{order.ErrInvalidState, http.StatusConflict},
		{order.ErrConflict, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got := recordStatus(func(c *gin.Context) { writeOrderError(c, tt.err) })
			if got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWriteDispatchError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{dispatch.ErrInvalidResponse, http.StatusBadRequest},
		{order.ErrNotFound, http.StatusNotFound},
		{dispatch.ErrInvalidState, http.StatusConflict},
		{dispatch.ErrAlreadyInProgress, http.StatusConflict},
		{dispatch.ErrStaleOffer, http.StatusConflict},
		{dispatch.ErrNoMatchingAttempt, http.StatusConflict},
		{dispatch.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: connection refused", dispatch.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got := recordStatus(func(c *gin.Context) { writeDispatchError(c, tt.err) })
			if got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}
