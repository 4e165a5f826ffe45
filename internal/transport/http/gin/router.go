package httpgin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/cinebook/internal/domain"
	redisrepo "github.com/kirinyoku/cinebook/internal/repository/redis"
	"github.com/kirinyoku/cinebook/internal/service/checkout"
	"github.com/kirinyoku/cinebook/internal/service/query"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type CheckoutService interface {
	CreateBooking(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

type BookingService interface {
	ListForUser(ctx context.Context, userID string) ([]domain.Booking, error)
	Get(ctx context.Context, id uuid.UUID, caller domain.Identity) (*domain.Booking, error)
	ListForMovie(ctx context.Context, movieID int64, caller domain.Identity) ([]domain.Booking, error)
}

type ShowService interface {
	GetShow(ctx context.Context, id int64) (*domain.Show, error)
	CheckSeats(ctx context.Context, showID int64, seatIDs []string) (*query.Availability, error)
}

type ReconcileService interface {
	ListPending(ctx context.Context, caller domain.Identity) ([]domain.StrandedCapture, error)
	Resolve(ctx context.Context, id uuid.UUID, caller domain.Identity) (*domain.StrandedCapture, error)
}

type IdempotencyStore interface {
	AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	SaveResult(ctx context.Context, key string, status int, body string) error
	GetResult(ctx context.Context, key string) (int, string, bool, error)
	Release(ctx context.Context, key string) error
}

type Deps struct {
	Checkout    CheckoutService
	Bookings    BookingService
	Shows       ShowService
	Reconcile   ReconcileService
	Identity    IdentityResolver
	Idempotency IdempotencyStore
	Limiter     RateLimiter
	FrontendURL string
	IdemLockTTL time.Duration
}

const settleTimeout = 3 * time.Second

type handlers struct {
	Deps
	logger *slog.Logger
}

func NewRouter(deps Deps, logger *slog.Logger, middlewares ...gin.HandlerFunc) *gin.Engine {
	if deps.IdemLockTTL <= 0 {
		deps.IdemLockTTL = 60 * time.Second
	}
	h := &handlers{Deps: deps, logger: logger}

	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger))
	if deps.FrontendURL != "" {
		r.Use(CORS(deps.FrontendURL))
	}
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/shows/:id", h.getShow)
	r.GET("/shows/:id/availability", h.getAvailability)

	authed := r.Group("/", Authenticate(deps.Identity))
	{
		authed.POST("/bookings", RateLimit(deps.Limiter, logger), h.createBooking)
		authed.GET("/bookings", h.listBookings)
		authed.GET("/bookings/:id", h.getBooking)
		authed.GET("/movies/:id/bookings", RequireAdmin(), h.listMovieBookings)
	}

	admin := r.Group("/admin", Authenticate(deps.Identity), RequireAdmin())
	{
		admin.GET("/reconciliations", h.listStranded)
		admin.POST("/reconciliations/:id/resolve", h.resolveStranded)
	}

	return r
}

// @Summary  Get show with seat map
// @Param    id  path  int  true  "Show ID"
// @Success  200  {object}  ShowResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /shows/{id} [get]
func (h *handlers) getShow(c *gin.Context) {
	showID, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	show, err := h.Shows.GetShow(c.Request.Context(), showID)
	if err != nil {
		respondErr(c, err)
		return
	}

	tag := fmt.Sprintf(`W/"show-%d-v%d"`, show.ID, show.Version)
	writeJSONWithCache(c, http.StatusOK, toShowResponse(show), tag, "public, max-age=15")
}

// @Summary  Check whether seats can be booked
// @Param    id     path   int     true  "Show ID"
// @Param    seats  query  string  true  "comma separated seat numbers"
// @Success  200  {object}  AvailabilityResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /shows/{id}/availability [get]
func (h *handlers) getAvailability(c *gin.Context) {
	showID, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	a, err := h.Shows.CheckSeats(c.Request.Context(), showID, splitSeats(c.Query("seats")))
	if err != nil {
		respondErr(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, toAvailabilityResponse(a))
}

// @Summary  Book seats and pay (idempotent)
// @Security BearerAuth
// @Param    req body  CreateBookingRequest true "payload"
// @Param    Idempotency-Key header string false "client retry key"
// @Success  201 {object} CreateBookingResponse
// @Failure  400 {object} ErrorResponse
// @Failure  401 {object} ErrorResponse
// @Failure  402 {object} ErrorResponse "payment failed"
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "seats unavailable / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Failure  500 {object} ErrorResponse "captured but not booked"
// @Router   /bookings [post]
func (h *handlers) createBooking(c *gin.Context) {
	caller, _ := identityFrom(c)

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	instr, ok := req.instruction()
	if !ok {
		badRequest(c, "unsupported payment method")
		return
	}

	ctx := c.Request.Context()

	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	var idemStorageKey string
	if h.Idempotency != nil && idemKey != "" {
		idemStorageKey = redisrepo.KeyIdemBooking(caller.UserID, idemKey)

		if h.replay(c, idemStorageKey, idemKey) {
			return
		}

		locked, err := h.Idempotency.AcquireLock(ctx, idemStorageKey, h.IdemLockTTL)
		if err != nil {
			respondErr(c, err)
			return
		}
		if !locked {
			if h.replay(c, idemStorageKey, idemKey) {
				return
			}
			c.Header("Retry-After", "1")
			c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
			return
		}
	}

	var gatewayKey string
	if idemKey != "" {
		gatewayKey = "booking:" + caller.UserID + ":" + idemKey
	}

	res, err := h.Checkout.CreateBooking(ctx, checkout.Request{
		UserID:         caller.UserID,
		ShowID:         req.ShowID,
		SeatIDs:        req.Seats,
		Payment:        instr,
		IdempotencyKey: gatewayKey,
	})

	status, body := http.StatusCreated, any(nil)
	if err != nil {
		status, body = errorResponse(err)
		if status == http.StatusInternalServerError {
			_ = c.Error(err)
		}
	} else {
		body = toCreateBookingResponse(res)
	}

	if idemStorageKey != "" {
		// The booking may have committed after the client went away; the
		// outcome must still be recorded for its retry.
		settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
		h.settle(settleCtx, idemStorageKey, status, body, err)
		cancel()
		c.Header("Idempotency-Key", idemKey)
	}

	c.JSON(status, body)
}

// replay writes a stored outcome for the key, if there is one.
func (h *handlers) replay(c *gin.Context, storageKey, idemKey string) bool {
	status, body, ok, err := h.Idempotency.GetResult(c.Request.Context(), storageKey)
	if err != nil || !ok {
		return false
	}

	c.Header("Idempotency-Key", idemKey)
	c.Header("Idempotent-Replayed", "true")
	c.Data(status, "application/json; charset=utf-8", []byte(body))
	return true
}

// settle stores outcomes that must not be retried, a booking, a payment
// failure or a stranded capture, and frees the key for anything else. A
// payment that timed out may still have been captured by the provider, so
// its key is freed and the retry reaches the gateway with the same key.
func (h *handlers) settle(ctx context.Context, key string, status int, body any, err error) {
	final := err == nil ||
		(status == http.StatusPaymentRequired && !isPaymentTimeout(err)) ||
		isPartialFailure(err)

	if !final {
		if rerr := h.Idempotency.Release(ctx, key); rerr != nil {
			h.logger.Warn("release idempotency key", slog.Any("error", rerr))
		}
		return
	}

	b, merr := json.Marshal(body)
	if merr != nil {
		return
	}
	if serr := h.Idempotency.SaveResult(ctx, key, status, string(b)); serr != nil {
		h.logger.Warn("save idempotency result", slog.Any("error", serr))
	}
}

// @Summary  List the caller's bookings
// @Security BearerAuth
// @Success  200 {object} BookingListResponse
// @Failure  401 {object} ErrorResponse
// @Router   /bookings [get]
func (h *handlers) listBookings(c *gin.Context) {
	caller, _ := identityFrom(c)

	bs, err := h.Bookings.ListForUser(c.Request.Context(), caller.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, BookingListResponse{
		Message:  "Bookings retrieved successfully",
		Bookings: toBookingResponses(bs),
	})
}

// @Summary  Get booking
// @Security BearerAuth
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} BookingDetailResponse
// @Failure  403 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{id} [get]
func (h *handlers) getBooking(c *gin.Context) {
	caller, _ := identityFrom(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid id")
		return
	}

	b, err := h.Bookings.Get(c.Request.Context(), id, caller)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, BookingDetailResponse{
		Message: "Booking retrieved successfully",
		Booking: toBookingResponse(*b),
	})
}

// @Summary  List bookings for a movie (admin)
// @Security BearerAuth
// @Param    id  path  int  true  "Movie ID"
// @Success  200 {object} BookingListResponse
// @Failure  403 {object} ErrorResponse
// @Router   /movies/{id}/bookings [get]
func (h *handlers) listMovieBookings(c *gin.Context) {
	caller, _ := identityFrom(c)

	movieID, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	bs, err := h.Bookings.ListForMovie(c.Request.Context(), movieID, caller)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, BookingListResponse{
		Message:  "Movie bookings retrieved successfully",
		Bookings: toBookingResponses(bs),
	})
}

// @Summary  List unresolved stranded captures (admin)
// @Security BearerAuth
// @Success  200 {object} StrandedListResponse
// @Router   /admin/reconciliations [get]
func (h *handlers) listStranded(c *gin.Context) {
	caller, _ := identityFrom(c)

	entries, err := h.Reconcile.ListPending(c.Request.Context(), caller)
	if err != nil {
		respondErr(c, err)
		return
	}

	out := make([]StrandedCaptureResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toStrandedResponse(e))
	}

	c.JSON(http.StatusOK, StrandedListResponse{Entries: out})
}

// @Summary  Mark a stranded capture as refunded (admin)
// @Security BearerAuth
// @Param    id  path  string  true  "Entry ID (uuid)"
// @Success  200 {object} StrandedCaptureResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse
// @Router   /admin/reconciliations/{id}/resolve [post]
func (h *handlers) resolveStranded(c *gin.Context) {
	caller, _ := identityFrom(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid id")
		return
	}

	sc, err := h.Reconcile.Resolve(c.Request.Context(), id, caller)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toStrandedResponse(*sc))
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func splitSeats(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
