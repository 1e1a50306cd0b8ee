package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/food_erp_fulfillment/internal/core/ports/services"
	"github.com/SscSPs/food_erp_fulfillment/internal/dto"
	"github.com/SscSPs/food_erp_fulfillment/internal/middleware"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// stockHandler handles HTTP requests related to stock balances and the ledger.
type stockHandler struct {
	stockSvc     portssvc.StockSvcFacade
	reconcileSvc portssvc.ReconciliationSvc
}

func newStockHandler(stockSvc portssvc.StockSvcFacade, reconcileSvc portssvc.ReconciliationSvc) *stockHandler {
	return &stockHandler{stockSvc: stockSvc, reconcileSvc: reconcileSvc}
}

// RegisterStockRoutes registers balance, ledger and movement routes.
func RegisterStockRoutes(rg *gin.RouterGroup, stockSvc portssvc.StockSvcFacade, reconcileSvc portssvc.ReconciliationSvc, writes ...gin.HandlerFunc) {
	registerValidators()
	h := newStockHandler(stockSvc, reconcileSvc)

	rg.GET("/stock-balances", h.getBalance)
	rg.GET("/stock-balances/candidates", h.listCandidates)
	rg.GET("/stock-ledger", h.listLedger)
	rg.GET("/stock-ledger/export", h.exportLedger)

	w := rg.Group("", writes...)
	{
		w.POST("/stock-balances/reconcile", h.reconcile)
		w.POST("/stock-movements", h.recordMovement)
	}
}

// getBalance godoc
// @Summary Get a stock balance
// @Description Returns stock, allocated and available quantity of one item in one warehouse
// @Tags stock
// @Produce json
// @Param itemId query string true "Item ID"
// @Param warehouseId query string true "Warehouse ID"
// @Success 200 {object} dto.StockBalanceResponse
// @Failure 400 {object} map[string]string "Missing query parameters"
// @Failure 404 {object} map[string]string "Item or warehouse not found"
// @Security BearerAuth
// @Router /stock-balances [get]
func (h *stockHandler) getBalance(c *gin.Context) {
	var params dto.StockBalanceParams
	if err := c.ShouldBindQuery(&params); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Failed to bind query parameters for GetBalance", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	balance, err := h.stockSvc.GetBalance(c.Request.Context(), params)
	if err != nil {
		respondWithError(c, err, "retrieve stock balance")
		return
	}
	c.JSON(http.StatusOK, balance)
}

// listCandidates godoc
// @Summary List candidate warehouses
// @Description Returns the item's balance in every active warehouse that accepts it
// @Tags stock
// @Produce json
// @Param itemId query string true "Item ID"
// @Success 200 {array} dto.StockBalanceResponse
// @Failure 400 {object} map[string]string "Missing query parameters"
// @Failure 404 {object} map[string]string "Item not found"
// @Security BearerAuth
// @Router /stock-balances/candidates [get]
func (h *stockHandler) listCandidates(c *gin.Context) {
	var params dto.CandidateBalancesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	balances, err := h.stockSvc.ListCandidateBalances(c.Request.Context(), params.ItemID)
	if err != nil {
		respondWithError(c, err, "list candidate warehouses")
		return
	}
	c.JSON(http.StatusOK, balances)
}

// listLedger godoc
// @Summary List ledger entries
// @Description Lists the ledger of one item in one warehouse, newest first
// @Tags stock
// @Produce json
// @Param itemId query string true "Item ID"
// @Param warehouseId query string true "Warehouse ID"
// @Param limit query int false "Page size (default 50, max 200)"
// @Param nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListStockLedgerResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Security BearerAuth
// @Router /stock-ledger [get]
func (h *stockHandler) listLedger(c *gin.Context) {
	var params dto.ListStockLedgerParams
	if err := c.ShouldBindQuery(&params); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Failed to bind query parameters for ListLedger", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.stockSvc.ListLedger(c.Request.Context(), params)
	if err != nil {
		respondWithError(c, err, "list stock ledger")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// exportLedger godoc
// @Summary Export the ledger
// @Description Downloads the full ledger of one item in one warehouse as an XLSX workbook
// @Tags stock
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param itemId query string true "Item ID"
// @Param warehouseId query string true "Warehouse ID"
// @Success 200 {file} file
// @Failure 400 {object} map[string]string "Missing query parameters"
// @Security BearerAuth
// @Router /stock-ledger/export [get]
func (h *stockHandler) exportLedger(c *gin.Context) {
	var params dto.StockBalanceParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	// buffered so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.stockSvc.ExportLedger(c.Request.Context(), params, &buf); err != nil {
		respondWithError(c, err, "export stock ledger")
		return
	}

	filename := fmt.Sprintf("ledger_%s_%s.xlsx", params.ItemID, params.WarehouseID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// recordMovement godoc
// @Summary Record a manual movement
// @Description Posts PRODUCTION_IN, MATERIAL_USED, WAIT_IN or WAIT_OUT outside the order flows
// @Tags stock
// @Accept json
// @Produce json
// @Param movement body dto.RecordMovementRequest true "Movement"
// @Success 201 {object} dto.StockLedgerEntryResponse
// @Failure 400 {object} map[string]string "Invalid input or type not allowed"
// @Failure 404 {object} map[string]string "Item or warehouse not found"
// @Failure 409 {object} map[string]string "Stock is short"
// @Failure 422 {object} map[string]string "Stock balance row is inconsistent"
// @Security BearerAuth
// @Router /stock-movements [post]
func (h *stockHandler) recordMovement(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)

	var req dto.RecordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RecordMovement", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	entry, err := h.stockSvc.RecordMovement(c.Request.Context(), req, middleware.GetActor(c))
	if err != nil {
		respondWithError(c, err, "record stock movement")
		return
	}

	logger.Info("Stock movement recorded", slog.String("entry_id", entry.EntryID), slog.String("type", string(entry.Type)))
	c.JSON(http.StatusCreated, dto.ToStockLedgerEntryResponse(*entry))
}

// reconcile godoc
// @Summary Reconcile balances with the ledger
// @Description Replays the ledger of one row, or of every row when no key is given, and flags or repairs mismatches
// @Tags stock
// @Accept json
// @Produce json
// @Param request body dto.ReconcileRequest false "Row to reconcile and repair flag"
// @Success 200 {object} dto.ReconciliationSummary "All rows; a single row returns dto.ReconciliationReport"
// @Failure 400 {object} map[string]string "Invalid input"
// @Security BearerAuth
// @Router /stock-balances/reconcile [post]
func (h *stockHandler) reconcile(c *gin.Context) {
	logger := middleware.GetLoggerFromContext(c)

	var req dto.ReconcileRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		logger.Warn("Failed to bind JSON for Reconcile", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	if req.ItemID != "" {
		params := dto.StockBalanceParams{ItemID: req.ItemID, WarehouseID: req.WarehouseID}
		report, err := h.reconcileSvc.ReconcilePair(c.Request.Context(), params.Key(), req.Repair)
		if err != nil {
			respondWithError(c, err, "reconcile stock balance")
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}

	summary, err := h.reconcileSvc.ReconcileAll(c.Request.Context(), req.Repair)
	if err != nil {
		respondWithError(c, err, "reconcile stock balances")
		return
	}
	logger.Info("Reconciliation run finished",
		slog.Int("checked", summary.Checked),
		slog.Int("inconsistent", summary.Inconsistent),
		slog.Int("repaired", summary.Repaired))
	c.JSON(http.StatusOK, summary)
}
