package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/depot-replenishment/internal/domain"
	"github.com/andresuchdata/depot-replenishment/internal/pipeline/replenishment"
	"github.com/andresuchdata/depot-replenishment/internal/service"
	"github.com/andresuchdata/depot-replenishment/internal/storage"
)

// ExportObjectHeader carries the archive key of an exported workbook.
const ExportObjectHeader = "X-Export-Object-Key"

type ReplenishmentHandler struct {
	service *service.ReplenishmentService
}

func NewReplenishmentHandler(service *service.ReplenishmentService) *ReplenishmentHandler {
	return &ReplenishmentHandler{service: service}
}

func (h *ReplenishmentHandler) CreateSession(c *gin.Context) {
	id, err := h.service.CreateSession(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": id})
}

func (h *ReplenishmentHandler) DeleteSession(c *gin.Context) {
	if err := h.service.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type uploadFunc func(ctx context.Context, sessionID, filename string, r io.Reader) (*service.UploadResult, error)

func (h *ReplenishmentHandler) UploadOrders(c *gin.Context) {
	h.upload(c, h.service.UploadOrders)
}

func (h *ReplenishmentHandler) UploadInventory(c *gin.Context) {
	h.upload(c, h.service.UploadInventory)
}

func (h *ReplenishmentHandler) UploadTransit(c *gin.Context) {
	h.upload(c, h.service.UploadTransit)
}

func (h *ReplenishmentHandler) upload(c *gin.Context, fn uploadFunc) {
	header, err := c.FormFile("file")
	if err != nil {
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			respondError(c, err)
			return
		}
		badRequest(c, "missing multipart file field \"file\"")
		return
	}

	f, err := header.Open()
	if err != nil {
		badRequest(c, "unreadable upload")
		return
	}
	defer f.Close()

	result, err := fn(c.Request.Context(), c.Param("id"), header.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ReplenishmentHandler) Options(c *gin.Context) {
	opts, err := h.service.Options(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

func (h *ReplenishmentHandler) Calculate(c *gin.Context) {
	var req domain.CalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("invalid calculation request: %v", err))
		return
	}

	result, err := h.service.Calculate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ReplenishmentHandler) Result(c *gin.Context) {
	result, err := h.service.Result(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type paletteRequest struct {
	replenishment.OverrideSelector
	Palettes *int `json:"palettes"`
}

func (h *ReplenishmentHandler) SetPalettes(c *gin.Context) {
	var req paletteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("invalid palette request: %v", err))
		return
	}
	if req.Palettes == nil {
		badRequest(c, "palettes is required")
		return
	}

	result, err := h.service.ApplyPaletteOverride(c.Request.Context(), c.Param("id"), req.OverrideSelector, *req.Palettes)
	if err != nil {
		respondError(c, err)
		return
	}

	row, _ := overriddenRow(result, req.OverrideSelector)
	c.JSON(http.StatusOK, gin.H{
		"row":     row,
		"summary": result.Summary,
	})
}

// overriddenRow finds the row the override landed on.
func overriddenRow(result *domain.CalculationResult, sel replenishment.OverrideSelector) (*domain.CalculationRow, bool) {
	for i := range result.Rows {
		r := &result.Rows[i]
		if r.Depot == strings.TrimSpace(sel.Depot) && r.Article == strings.TrimSpace(sel.Article) && r.Overridden {
			if sel.Packaging == "" || strings.EqualFold(r.Packaging, strings.TrimSpace(sel.Packaging)) {
				return r, true
			}
		}
	}
	return nil, false
}

func (h *ReplenishmentHandler) GetPalettes(c *gin.Context) {
	sel := replenishment.OverrideSelector{
		Depot:     c.Query("depot"),
		Article:   c.Query("article"),
		Packaging: c.Query("packaging"),
	}
	palettes, err := h.service.Palettes(c.Request.Context(), c.Param("id"), sel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"palettes": palettes})
}

func (h *ReplenishmentHandler) DepotSuggestions(c *gin.Context) {
	completion, err := h.service.DepotSuggestions(c.Request.Context(), c.Param("id"), c.Param("depot"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, completion)
}

type exportRequest struct {
	Keys []domain.RowKey `json:"keys"`
}

func (h *ReplenishmentHandler) Export(c *gin.Context) {
	var req exportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, fmt.Sprintf("invalid export request: %v", err))
			return
		}
	}

	out, err := h.service.Export(c.Request.Context(), c.Param("id"), req.Keys)
	if err != nil {
		respondError(c, err)
		return
	}

	if out.ObjectKey != "" {
		c.Header(ExportObjectHeader, out.ObjectKey)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	c.Data(http.StatusOK, storage.XLSXContentType, out.Data)
}

type askRequest struct {
	Query string `json:"query" binding:"required"`
}

func (h *ReplenishmentHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "query is required")
		return
	}

	answer, err := h.service.Ask(c.Request.Context(), c.Param("id"), req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (h *ReplenishmentHandler) GetDepotArticles(c *gin.Context) {
	cfg, err := h.service.DepotArticleConfig(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *ReplenishmentHandler) SaveDepotArticles(c *gin.Context) {
	var cfg domain.DepotArticleConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, fmt.Sprintf("invalid configuration: %v", err))
		return
	}

	saved, err := h.service.SaveDepotArticleConfig(c.Request.Context(), cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *ReplenishmentHandler) GetSourcing(c *gin.Context) {
	table, err := h.service.SourcingTable(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": table})
}

type sourcingRequest struct {
	Articles map[string]string `json:"articles"`
}

func (h *ReplenishmentHandler) SaveSourcing(c *gin.Context) {
	var req sourcingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("invalid sourcing table: %v", err))
		return
	}

	table, err := h.service.SaveSourcingTable(c.Request.Context(), req.Articles)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": table})
}
