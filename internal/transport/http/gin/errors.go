package httpgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/cinebook/internal/domain"
	"github.com/kirinyoku/cinebook/internal/payment"
	"github.com/kirinyoku/cinebook/internal/service/bookings"
	"github.com/kirinyoku/cinebook/internal/service/checkout"
	"github.com/kirinyoku/cinebook/internal/service/query"
	"github.com/kirinyoku/cinebook/internal/service/reconcile"
)

func respondErr(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}

	c.JSON(status, body)
}

// errorResponse maps service errors onto a status and body. Unknown errors
// are reported as 500 without their text.
func errorResponse(err error) (int, ErrorResponse) {
	var (
		invalid     *checkout.InvalidRequestError
		unavailable *domain.UnavailableSeatsError
		payFailed   *checkout.PaymentFailedError
		partial     *checkout.PartialFailureError
	)

	switch {
	// checkout
	case errors.As(err, &invalid):
		return http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request",
			Message: invalid.Field + " " + invalid.Reason,
		}
	case errors.Is(err, checkout.ErrInvalidRequest):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid request"}
	case errors.Is(err, checkout.ErrShowNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "show not found"}
	case errors.Is(err, checkout.ErrSeatsUnavailable):
		resp := ErrorResponse{Error: "seats unavailable"}
		if errors.As(err, &unavailable) {
			resp.UnavailableSeats = unavailable.SeatIDs
		}
		return http.StatusConflict, resp
	case errors.As(err, &payFailed):
		return http.StatusPaymentRequired, ErrorResponse{
			Error:       "payment failed",
			Status:      string(payFailed.Status),
			Message:     payFailed.Message,
			DeclineCode: payFailed.DeclineCode,
		}
	case errors.As(err, &partial):
		return http.StatusInternalServerError, ErrorResponse{
			Error:     "booking could not be completed, contact support",
			Reference: partial.Reference.String(),
		}
	// query
	case errors.Is(err, query.ErrNoSeats):
		return http.StatusBadRequest, ErrorResponse{Error: "no seats requested"}
	case errors.Is(err, query.ErrShowNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "show not found"}
	// bookings
	case errors.Is(err, bookings.ErrBookingNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "booking not found"}
	case errors.Is(err, bookings.ErrAccessDenied), errors.Is(err, reconcile.ErrAccessDenied):
		return http.StatusForbidden, ErrorResponse{Error: "access denied"}
	// reconcile
	case errors.Is(err, reconcile.ErrEntryNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "stranded capture not found"}
	case errors.Is(err, reconcile.ErrAlreadyResolved):
		return http.StatusConflict, ErrorResponse{Error: "stranded capture already resolved"}
	}

	return http.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
}

func isPartialFailure(err error) bool {
	return errors.Is(err, checkout.ErrPartialFailure)
}

func isPaymentTimeout(err error) bool {
	var pf *checkout.PaymentFailedError
	return errors.As(err, &pf) && pf.Status == payment.StatusTimeout
}
