package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"portfolio-analytics-api/internal/calculator"
	"portfolio-analytics-api/internal/services"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("dimension", func(fl validator.FieldLevel) bool {
			return calculator.Dimension(fl.Field().String()).IsValid()
		})
	}
}

type AnalyticsController struct {
	logger  *logrus.Logger
	service *services.AnalyticsService
}

func NewAnalyticsController(logger *logrus.Logger, service *services.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{
		logger:  logger,
		service: service,
	}
}

func (c *AnalyticsController) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/:accountId", c.GetComprehensiveAnalysis)
	r.GET("/:accountId/allocation", c.GetAllocation)
	r.GET("/:accountId/risk", c.GetRiskMetrics)
	r.GET("/:accountId/dividends", c.GetDividendSummary)
	r.GET("/:accountId/pies", c.GetPieAnalysis)
	r.GET("/:accountId/securities/:symbol/risk", c.GetSecurityRisk)
	r.POST("/:accountId/drift", c.DetectDrift)
	r.POST("/:accountId/snapshots", c.CreateSnapshot)
	r.GET("/:accountId/snapshots", c.GetSnapshotHistory)
}

// GetComprehensiveAnalysis returns the full analysis for an account
func (c *AnalyticsController) GetComprehensiveAnalysis(ctx *gin.Context) {
	accountID := ctx.Param("accountId")

	analysis, err := c.service.GetComprehensiveAnalysis(ctx.Request.Context(), accountID)
	if err != nil {
		c.logger.Errorf("Failed to compute analysis for account %s: %v", accountID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute analysis"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": analysis})
}

// AllocationQuery selects the breakdown dimension
type AllocationQuery struct {
	Dimension string `form:"dimension,default=sector" binding:"omitempty,dimension"`
}

// GetAllocation returns the breakdown along one dimension
func (c *AnalyticsController) GetAllocation(ctx *gin.Context) {
	accountID := ctx.Param("accountId")

	var query AllocationQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid dimension"})
		return
	}
	dimension := calculator.Dimension(query.Dimension)

	breakdown, err := c.service.GetAllocation(ctx.Request.Context(), accountID, dimension)
	if err != nil {
		c.logger.Errorf("Failed to compute allocation for account %s: %v", accountID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute allocation"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": gin.H{
		"dimension":  dimension,
		"allocation": breakdown,
	}})
}

// GetRiskMetrics returns the account's risk profile
func (c *AnalyticsController) GetRiskMetrics(ctx *gin.Context) {
	accountID := ctx.Param("accountId")

	metrics, err := c.service.GetRiskMetrics(ctx.Request.Context(), accountID)
	if err != nil {
		c.logger.Errorf("Failed to compute risk metrics for account %s: %v", accountID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute risk metrics"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": metrics})
}

// GetDividendSummary returns the account's dividend analysis
func (c *AnalyticsController) GetDividendSummary(ctx *gin.Context) {
	accountID := ctx.Param("accountId")

	summary, err := c.service.GetDividendSummary(ctx.Request.Context(), accountID)
	if err != nil {
		c.logger.Errorf("Failed to compute dividend summary for account %s: %v", accountID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute dividend summary"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": summary})
}

// GetSecurityRisk returns the risk profile of one held security
func (c *AnalyticsController) GetSecurityRisk(ctx *gin.Context) {
	symbol := ctx.Param("symbol")

	metrics, err := c.service.GetSecurityRisk(ctx.Request.Context(), symbol)
	if err != nil {
		c.logger.Errorf("Failed to compute risk metrics for %s: %v", symbol, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute security risk"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": metrics})
}

// GetPieAnalysis returns the account's pies with performance attribution
func (c *AnalyticsController) GetPieAnalysis(ctx *gin.Context) {
	accountID := ctx.Param("accountId")

	pies, err := c.service.GetPieAnalysis(ctx.Request.Context(), accountID)
	if err != nil {
		c.logger.Errorf("Failed to analyze pies for account %s: %v", accountID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to analyze pies"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": pies})
}

// DriftRequest carries the target allocation to compare against
type DriftRequest struct {
	Targets   map[string]map[string]float64 `json:"targets" binding:"required"`
	Tolerance float64                       `json:"tolerance" binding:"gte=0"`
}

// DetectDrift compares the current allocation against caller targets
func (c *AnalyticsController) DetectDrift(ctx *gin.Context) {
	accountID := ctx.Param("accountId")

	var req DriftRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	targets := make(map[calculator.Dimension]map[string]decimal.Decimal, len(req.Targets))
	for name, categories := range req.Targets {
		dimension := calculator.Dimension(name)
		if !dimension.IsValid() {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid dimension: " + name})
			return
		}
		targets[dimension] = make(map[string]decimal.Decimal, len(categories))
		for category, pct := range categories {
			targets[dimension][category] = decimal.NewFromFloat(pct)
		}
	}

	report, err := c.service.DetectDrift(ctx.Request.Context(), accountID, targets, decimal.NewFromFloat(req.Tolerance))
	if err != nil {
		c.logger.Errorf("Failed to detect drift for account %s: %v", accountID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to detect drift"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": report})
}

// CreateSnapshot stores a point-in-time analytics snapshot
func (c *AnalyticsController) CreateSnapshot(ctx *gin.Context) {
	accountID := ctx.Param("accountId")

	snapshot, err := c.service.CreateSnapshot(ctx.Request.Context(), accountID)
	if err != nil {
		c.logger.Errorf("Failed to create snapshot for account %s: %v", accountID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create snapshot"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"data": snapshot})
}

// GetSnapshotHistory returns stored snapshots for an account
func (c *AnalyticsController) GetSnapshotHistory(ctx *gin.Context) {
	accountID := ctx.Param("accountId")

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "30"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	snapshots, err := c.service.GetSnapshotHistory(ctx.Request.Context(), accountID, limit, offset)
	if err != nil {
		c.logger.Errorf("Failed to get snapshots for account %s: %v", accountID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get snapshots"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": snapshots})
}
