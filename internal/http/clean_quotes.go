package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/vcfgen/internal/audit"
	"github.com/mrlokans/vcfgen/internal/textfilter"
)

// CleanQuotesRequest is the body of POST /api/clean-quotes.
type CleanQuotesRequest struct {
	Text string `json:"text" form:"text"`
}

// CleanQuotesResponse carries the cleaned text.
type CleanQuotesResponse struct {
	Text string `json:"text"`
}

// CleanQuotesController exposes the quote pre-filter so the UI can preview it.
type CleanQuotesController struct {
	auditor *audit.Service
}

func NewCleanQuotesController(auditor *audit.Service) *CleanQuotesController {
	return &CleanQuotesController{auditor: auditor}
}

// Clean handles POST /api/clean-quotes
func (cc *CleanQuotesController) Clean(c *gin.Context) {
	var req CleanQuotesRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	cleaned := textfilter.CleanQuotes(req.Text)
	cc.auditor.LogCleanQuotes(c.ClientIP(), len(req.Text), len(cleaned))

	c.JSON(http.StatusOK, CleanQuotesResponse{Text: cleaned})
}
