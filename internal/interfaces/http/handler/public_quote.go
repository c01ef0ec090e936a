package handler

import (
	"github.com/gin-gonic/gin"
	quoteapp "github.com/quotedesk/backend/internal/application/quote"
)

// PublicQuoteHandler handles the unauthenticated signing-link endpoints.
// Everything it returns is the redacted public projection.
type PublicQuoteHandler struct {
	BaseHandler
	publicService *quoteapp.PublicQuoteService
}

// NewPublicQuoteHandler creates a new PublicQuoteHandler
func NewPublicQuoteHandler(publicService *quoteapp.PublicQuoteService) *PublicQuoteHandler {
	return &PublicQuoteHandler{
		publicService: publicService,
	}
}

// GetByPublicID godoc
// @ID           getPublicQuote
// @Summary      Get a quote by its public ID
// @Description  Retrieve the client-facing view of a quote for the signing page
// @Tags         public
// @Produce      json
// @Param        public_id path string true "Quote public ID" example(QT-2026-0042)
// @Success      200 {object} APIResponse[quote.PublicQuoteResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /public/quotes/{public_id} [get]
func (h *PublicQuoteHandler) GetByPublicID(c *gin.Context) {
	publicID := c.Param("public_id")
	if publicID == "" {
		h.BadRequest(c, "Quote public ID is required")
		return
	}

	result, err := h.publicService.GetByPublicID(c.Request.Context(), publicID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Sign godoc
// @ID           signPublicQuote
// @Summary      Sign a quote
// @Description  Record the client's signature on an approved or draft quote. The caller's address is kept in the audit trail.
// @Tags         public
// @Accept       json
// @Produce      json
// @Param        public_id path string true "Quote public ID" example(QT-2026-0042)
// @Param        request body quote.SignQuoteRequest true "Signature submission"
// @Success      200 {object} APIResponse[quote.PublicQuoteResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      507 {object} ErrorResponse
// @Router       /public/quotes/{public_id}/sign [post]
func (h *PublicQuoteHandler) Sign(c *gin.Context) {
	publicID := c.Param("public_id")
	if publicID == "" {
		h.BadRequest(c, "Quote public ID is required")
		return
	}

	var req quoteapp.SignQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	signed, err := h.publicService.Sign(c.Request.Context(), publicID, req, c.ClientIP())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, signed)
}
