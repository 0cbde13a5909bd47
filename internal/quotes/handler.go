package quotes

import (
	"context"
	"net/http"
	"time"

	"crm_portal_backend/platform/httpkit"
	"crm_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
	errInvalidQuoteID = "invalid quote ID"
	errInvalidLeadID  = "invalid lead ID"
)

// CreateQuoteRequest is the body for drafting a quote. Terms, payment terms
// and validity are optional; blank fields get placeholder copy that
// finalization replaces with defaults.
type CreateQuoteRequest struct {
	LeadID       uuid.UUID `json:"leadId" validate:"required"`
	Title        string    `json:"title" validate:"required,max=200"`
	Terms        string    `json:"terms" validate:"max=5000"`
	PaymentTerms string    `json:"paymentTerms" validate:"max=2000"`
	Validity     string    `json:"validity" validate:"max=500"`
	TotalCents   int64     `json:"totalCents" validate:"gte=0"`
}

// QuoteResponse is the API representation of a quote.
type QuoteResponse struct {
	ID           uuid.UUID  `json:"id"`
	LeadID       uuid.UUID  `json:"leadId"`
	QuoteNumber  string     `json:"quoteNumber"`
	Status       string     `json:"status"`
	Title        string     `json:"title"`
	Terms        string     `json:"terms"`
	PaymentTerms string     `json:"paymentTerms"`
	Validity     string     `json:"validity"`
	TotalCents   int64      `json:"totalCents"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Handler exposes quotes over HTTP.
type Handler struct {
	service *Service
	val     *validator.Validator
}

// NewHandler creates a new quotes handler.
func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{service: svc, val: val}
}

// RegisterRoutes mounts quote routes on the given group.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("", h.handleCreateDraft)
	g.GET("/:quoteId", h.handleGet)
	g.POST("/:quoteId/finalize", h.handleFinalize)
	g.POST("/:quoteId/accept", h.handleAccept)
	g.POST("/:quoteId/reject", h.handleReject)
	g.GET("/lead/:leadId", h.handleListByLead)
}

func (h *Handler) handleCreateDraft(c *gin.Context) {
	var req CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return
	}

	quote, err := h.service.CreateDraft(c.Request.Context(), CreateQuoteParams{
		LeadID:       req.LeadID,
		Title:        req.Title,
		Terms:        req.Terms,
		PaymentTerms: req.PaymentTerms,
		Validity:     req.Validity,
		TotalCents:   req.TotalCents,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, toQuoteResponse(quote))
}

func (h *Handler) handleGet(c *gin.Context) {
	quoteID, ok := h.quoteID(c)
	if !ok {
		return
	}

	quote, err := h.service.Get(c.Request.Context(), quoteID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toQuoteResponse(quote))
}

func (h *Handler) handleFinalize(c *gin.Context) {
	quoteID, ok := h.quoteID(c)
	if !ok {
		return
	}
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	quote, err := h.service.Finalize(c.Request.Context(), quoteID, id.AdminID().String())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toQuoteResponse(quote))
}

func (h *Handler) handleAccept(c *gin.Context) {
	h.handleResolve(c, h.service.Accept)
}

func (h *Handler) handleReject(c *gin.Context) {
	h.handleResolve(c, h.service.Reject)
}

func (h *Handler) handleResolve(c *gin.Context, resolve func(ctx context.Context, id uuid.UUID, by string) (Quote, error)) {
	quoteID, ok := h.quoteID(c)
	if !ok {
		return
	}
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	quote, err := resolve(c.Request.Context(), quoteID, id.AdminID().String())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toQuoteResponse(quote))
}

func (h *Handler) handleListByLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidLeadID, nil)
		return
	}

	items, err := h.service.ListByLead(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	resp := make([]QuoteResponse, 0, len(items))
	for _, quote := range items {
		resp = append(resp, toQuoteResponse(quote))
	}
	httpkit.OK(c, resp)
}

func (h *Handler) quoteID(c *gin.Context) (uuid.UUID, bool) {
	quoteID, err := uuid.Parse(c.Param("quoteId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidQuoteID, nil)
		return uuid.Nil, false
	}
	return quoteID, true
}

func toQuoteResponse(q Quote) QuoteResponse {
	return QuoteResponse{
		ID:           q.ID,
		LeadID:       q.LeadID,
		QuoteNumber:  q.QuoteNumber,
		Status:       q.Status,
		Title:        q.Title,
		Terms:        q.Terms,
		PaymentTerms: q.PaymentTerms,
		Validity:     q.Validity,
		TotalCents:   q.TotalCents,
		SentAt:       q.SentAt,
		CreatedAt:    q.CreatedAt,
	}
}
