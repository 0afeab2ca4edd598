package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/garagebooking/internal/domain"
	"github.com/Domenick1991/garagebooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type lookupRequest struct {
	Registration string `json:"registration" binding:"required"`
}

type selectionRequest struct {
	ServiceType string `json:"service_type" binding:"required"`
	Combo       bool   `json:"combo"`
}

type quoteRequest struct {
	ServiceType  string `json:"service_type" binding:"required"`
	Registration string `json:"registration" binding:"required"`
	Combo        bool   `json:"combo"`
}

type intentRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

type createBookingRequest struct {
	ServiceType     string          `json:"service_type"`
	Combo           bool            `json:"combo"`
	Date            string          `json:"date"`
	Time            string          `json:"time"`
	Registration    string          `json:"registration"`
	Customer        domain.Customer `json:"customer"`
	Notes           string          `json:"notes"`
	PaymentIntentID string          `json:"payment_intent_id"`
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

type bookingResponse struct {
	Reference     string                   `json:"reference"`
	ServiceType   string                   `json:"service_type"`
	Date          string                   `json:"date"`
	Time          string                   `json:"time"`
	Vehicle       domain.VehicleAttributes `json:"vehicle"`
	CustomerName  string                   `json:"customer_name"`
	Price         domain.Money             `json:"price"`
	PriceDisplay  string                   `json:"price_display"`
	Currency      string                   `json:"currency"`
	PaymentStatus string                   `json:"payment_status"`
	BookingStatus string                   `json:"booking_status"`
	CreatedAt     string                   `json:"created_at"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("/services", h.services)
	router.POST("/vehicles/lookup", h.lookupVehicle)
	router.POST("/selection", h.stageSelection)
	router.GET("/selection", h.getSelection)
	router.POST("/quote", h.quote)
	router.POST("/payments/intents", h.createIntent)
	router.POST("/bookings", h.create)
	router.GET("/bookings/:reference", h.get)
	router.POST("/bookings/:reference/payment", h.confirmPayment)
}

func (h *BookingHandler) services(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"services": h.service.Catalog()})
}

func (h *BookingHandler) lookupVehicle(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, h.service.ResolveVehicle(c.Request.Context(), req.Registration))
}

func (h *BookingHandler) stageSelection(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sel, err := h.service.StageSelection(c.Request.Context(), visitorID(c), req.ServiceType, req.Combo)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sel)
}

func (h *BookingHandler) getSelection(c *gin.Context) {
	sel, err := h.service.GetSelection(c.Request.Context(), visitorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selection": sel})
}

func (h *BookingHandler) quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	q, err := h.service.Quote(c.Request.Context(), booking.QuoteInput{
		VisitorID:    visitorID(c),
		ServiceType:  req.ServiceType,
		Registration: req.Registration,
		Combo:        req.Combo,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *BookingHandler) createIntent(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	intent, err := h.service.CreatePaymentIntent(c.Request.Context(), domain.Money(req.Amount))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.service.Submit(c.Request.Context(), booking.SubmitInput{
		VisitorID:       visitorID(c),
		ServiceType:     req.ServiceType,
		Combo:           req.Combo,
		Date:            req.Date,
		Time:            req.Time,
		Registration:    req.Registration,
		Customer:        req.Customer,
		Notes:           req.Notes,
		PaymentIntentID: req.PaymentIntentID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) confirmPayment(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.service.ConfirmPayment(c.Request.Context(), c.Param("reference"), req.PaymentIntentID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		Reference:     b.Reference,
		ServiceType:   b.ServiceType,
		Date:          b.Date,
		Time:          b.Time,
		Vehicle:       b.Vehicle,
		CustomerName:  b.Customer.Name,
		Price:         b.Price,
		PriceDisplay:  b.Price.Format(b.Currency),
		Currency:      b.Currency,
		PaymentStatus: string(b.PaymentStatus),
		BookingStatus: string(b.BookingStatus),
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
	}
}
