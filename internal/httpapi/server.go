// Package httpapi exposes the booking service over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MarkoPoloResearchLab/motocare/pkg/booking"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	paramID             = "id"
	queryDate           = "date"
	queryGarageID       = "garage_id"
	queryLimit          = "limit"
	messageExpectedJSON = "expected JSON body"
	messageInvalidLimit = "limit must be a positive integer"
)

// BookingService is the part of booking.Service the HTTP adapter calls.
type BookingService interface {
	CreateAppointment(ctx context.Context, customerID booking.UserID, request booking.AppointmentRequest) (booking.Appointment, error)
	GetAppointment(ctx context.Context, appointmentID booking.AppointmentID, caller booking.Caller) (booking.Appointment, error)
	TransitionAppointment(ctx context.Context, appointmentID booking.AppointmentID, toStatus booking.AppointmentStatus, caller booking.Caller, extras booking.TransitionExtras) (booking.Appointment, error)
	CancelAppointment(ctx context.Context, appointmentID booking.AppointmentID, customerID booking.UserID, reason string) (booking.Appointment, error)
	SlotAvailability(ctx context.Context, garageID *booking.GarageID, date string) (booking.SlotAvailability, error)
	SetQuotedPrice(ctx context.Context, appointmentID booking.AppointmentID, price decimal.Decimal, actorID booking.UserID) (booking.Appointment, error)
	CreateInvoice(ctx context.Context, appointmentID booking.AppointmentID, items []booking.InvoiceItemInput, vatRate decimal.Decimal, initialStatus booking.InvoiceStatus, actorID booking.UserID) (booking.Invoice, error)
	EditInvoiceDraft(ctx context.Context, invoiceID booking.InvoiceID, items []booking.InvoiceItemInput, vatRate decimal.Decimal, actorID booking.UserID) (booking.Invoice, error)
	TransitionInvoice(ctx context.Context, invoiceID booking.InvoiceID, toStatus booking.InvoiceStatus, redeemPoints *int64, actorID booking.UserID) (booking.Invoice, error)
	RequestPayment(ctx context.Context, invoiceID booking.InvoiceID, customerID booking.UserID, redeemPoints int64) (booking.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID booking.InvoiceID, caller booking.Caller) (booking.Invoice, error)
	ListPendingPayments(ctx context.Context) ([]booking.Invoice, error)
	RewardBalance(ctx context.Context, userID booking.UserID) (booking.RewardBalance, error)
	RewardHistory(ctx context.Context, userID booking.UserID, limit int) ([]booking.RewardTransaction, error)
}

var _ BookingService = (*booking.Service)(nil)

// Run serves router on cfg.ListenAddr until ctx is done.
func Run(ctx context.Context, cfg Config, router http.Handler, logger *zap.Logger) error {
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("booking api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter wires every route. gatherer backs /metrics and may be nil.
func NewRouter(cfg Config, service BookingService, logger *zap.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Origin", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	handler := &httpHandler{
		logger:  logger,
		service: service,
		cfg:     cfg,
	}

	api := router.Group("/api")
	api.Use(authMiddleware([]byte(cfg.JWTSigningKey), cfg.JWTIssuer))

	api.POST("/appointments", handler.handleCreateAppointment)
	api.GET("/appointments/availability", handler.handleAvailability)
	api.GET("/appointments/:id", handler.handleGetAppointment)
	api.POST("/appointments/:id/cancel", handler.handleCancelAppointment)
	api.PATCH("/appointments/:id/status", handler.handleTransitionAppointment)
	api.GET("/invoices/:id", handler.handleGetInvoice)
	api.POST("/invoices/:id/pay", handler.handleRequestPayment)
	api.GET("/rewards", handler.handleRewards)

	admin := api.Group("/admin")
	admin.Use(requireAdmin())
	admin.PATCH("/appointments/:id/price", handler.handleSetQuotedPrice)
	admin.POST("/appointments/:id/invoice", handler.handleCreateInvoice)
	admin.PUT("/invoices/:id", handler.handleEditInvoice)
	admin.PATCH("/invoices/:id/status", handler.handleTransitionInvoice)
	admin.GET("/invoices/pending", handler.handlePendingPayments)
	admin.GET("/slots/occupancy", handler.handleAvailability)

	return router
}

type httpHandler struct {
	logger  *zap.Logger
	service BookingService
	cfg     Config
}

func (handler *httpHandler) handleCreateAppointment(ctx *gin.Context) {
	caller, ok := handler.caller(ctx)
	if !ok {
		return
	}
	var request createAppointmentRequest
	if !bindJSON(ctx, &request) {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	appointment, err := handler.service.CreateAppointment(requestCtx, caller.UserID, request.toDomain())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"appointment": newCustomerAppointmentPayload(appointment, caller)})
}

func (handler *httpHandler) handleGetAppointment(ctx *gin.Context) {
	caller, ok := handler.caller(ctx)
	if !ok {
		return
	}
	appointmentID, err := booking.NewAppointmentID(ctx.Param(paramID))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	appointment, err := handler.service.GetAppointment(requestCtx, appointmentID, caller)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"appointment": newCustomerAppointmentPayload(appointment, caller)})
}

func (handler *httpHandler) handleCancelAppointment(ctx *gin.Context) {
	caller, ok := handler.caller(ctx)
	if !ok {
		return
	}
	appointmentID, err := booking.NewAppointmentID(ctx.Param(paramID))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request cancelRequest
	if !bindOptionalJSON(ctx, &request) {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	appointment, err := handler.service.CancelAppointment(requestCtx, appointmentID, caller.UserID, request.Reason)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"appointment": newCustomerAppointmentPayload(appointment, caller)})
}

func (handler *httpHandler) handleTransitionAppointment(ctx *gin.Context) {
	caller, ok := handler.caller(ctx)
	if !ok {
		return
	}
	appointmentID, err := booking.NewAppointmentID(ctx.Param(paramID))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request transitionRequest
	if !bindJSON(ctx, &request) {
		return
	}
	toStatus, err := booking.ParseAppointmentStatus(request.Status)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	appointment, err := handler.service.TransitionAppointment(requestCtx, appointmentID, toStatus, caller, booking.TransitionExtras{
		Reason:         request.Reason,
		Note:           request.Note,
		RescheduleFrom: request.RescheduleFrom,
		RescheduleTo:   request.RescheduleTo,
	})
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"appointment": newCustomerAppointmentPayload(appointment, caller)})
}

func (handler *httpHandler) handleAvailability(ctx *gin.Context) {
	var garageID *booking.GarageID
	if raw := ctx.Query(queryGarageID); raw != "" {
		parsed, err := booking.NewGarageID(raw)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		garageID = &parsed
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	availability, err := handler.service.SlotAvailability(requestCtx, garageID, ctx.Query(queryDate))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newAvailabilityPayload(availability))
}

func (handler *httpHandler) handleGetInvoice(ctx *gin.Context) {
	caller, ok := handler.caller(ctx)
	if !ok {
		return
	}
	invoiceID, err := booking.NewInvoiceID(ctx.Param(paramID))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	invoice, err := handler.service.GetInvoice(requestCtx, invoiceID, caller)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"invoice": newInvoicePayload(invoice)})
}

func (handler *httpHandler) handleRequestPayment(ctx *gin.Context) {
	caller, ok := handler.caller(ctx)
	if !ok {
		return
	}
	invoiceID, err := booking.NewInvoiceID(ctx.Param(paramID))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request paymentRequest
	if !bindOptionalJSON(ctx, &request) {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	invoice, err := handler.service.RequestPayment(requestCtx, invoiceID, caller.UserID, request.RedeemPoints)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"invoice": newInvoicePayload(invoice)})
}

func (handler *httpHandler) handleRewards(ctx *gin.Context) {
	caller, ok := handler.caller(ctx)
	if !ok {
		return
	}
	limit := 0
	if raw := ctx.Query(queryLimit); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, messageInvalidLimit))
			return
		}
		limit = parsed
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	balance, err := handler.service.RewardBalance(requestCtx, caller.UserID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	transactions, err := handler.service.RewardHistory(requestCtx, caller.UserID, limit)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"rewards": newRewardsPayload(balance, transactions)})
}

func (handler *httpHandler) handleSetQuotedPrice(ctx *gin.Context) {
	caller, ok := handler.caller(ctx)
	if !ok {
		return
	}
	appointmentID, err := booking.NewAppointmentID(ctx.Param(paramID))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request quotedPriceRequest
	if !bindJSON(ctx, &request) {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	appointment, err := handler.service.SetQuotedPrice(requestCtx, appointmentID, request.Price, caller.UserID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"appointment": newAppointmentPayload(appointment)})
}

func (handler *httpHandler) handleCreateInvoice(ctx *gin.Context) {
	caller, ok := handler.caller(ctx)
	if !ok {
		return
	}
	appointmentID, err := booking.NewAppointmentID(ctx.Param(paramID))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request createInvoiceRequest
	if !bindOptionalJSON(ctx, &request) {
		return
	}
	var initialStatus booking.InvoiceStatus
	if request.Status != "" {
		initialStatus, err = booking.ParseInvoiceStatus(request.Status)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	invoice, err := handler.service.CreateInvoice(requestCtx, appointmentID, itemInputs(request.Items), request.VATRate, initialStatus, caller.UserID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"invoice": newInvoicePayload(invoice)})
}

func (handler *httpHandler) handleEditInvoice(ctx *gin.Context) {
	caller, ok := handler.caller(ctx)
	if !ok {
		return
	}
	invoiceID, err := booking.NewInvoiceID(ctx.Param(paramID))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request editInvoiceRequest
	if !bindJSON(ctx, &request) {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	invoice, err := handler.service.EditInvoiceDraft(requestCtx, invoiceID, itemInputs(request.Items), request.VATRate, caller.UserID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"invoice": newInvoicePayload(invoice)})
}

func (handler *httpHandler) handleTransitionInvoice(ctx *gin.Context) {
	caller, ok := handler.caller(ctx)
	if !ok {
		return
	}
	invoiceID, err := booking.NewInvoiceID(ctx.Param(paramID))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var request invoiceTransitionRequest
	if !bindJSON(ctx, &request) {
		return
	}
	toStatus, err := booking.ParseInvoiceStatus(request.Status)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	invoice, err := handler.service.TransitionInvoice(requestCtx, invoiceID, toStatus, request.RedeemPoints, caller.UserID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"invoice": newInvoicePayload(invoice)})
}

func (handler *httpHandler) handlePendingPayments(ctx *gin.Context) {
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()

	invoices, err := handler.service.ListPendingPayments(requestCtx)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	payloads := make([]invoicePayload, 0, len(invoices))
	for _, invoice := range invoices {
		payloads = append(payloads, newInvoicePayload(invoice))
	}
	ctx.JSON(http.StatusOK, gin.H{"invoices": payloads})
}

func (handler *httpHandler) caller(ctx *gin.Context) (booking.Caller, bool) {
	caller, ok := callerFrom(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse(errorCodeUnauth, messageNoToken))
		return booking.Caller{}, false
	}
	return caller, true
}

func (handler *httpHandler) requestContext(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
}

func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	status, code := statusForError(err)
	if status == http.StatusInternalServerError {
		handler.logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Error(err),
		)
		ctx.JSON(status, errorResponse(code, messageInternal))
		return
	}
	ctx.JSON(status, errorResponse(code, err.Error()))
}

func bindJSON(ctx *gin.Context, target any) bool {
	if err := ctx.ShouldBindJSON(target); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, messageExpectedJSON))
		return false
	}
	return true
}

// bindOptionalJSON accepts an empty body and leaves target at its zero value.
func bindOptionalJSON(ctx *gin.Context, target any) bool {
	if ctx.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(ctx, target)
}
