package controller

import (
	"net/http"
	"tp_portal_backend/internal/service"
	"tp_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CoordinatorController struct {
	DashboardService *service.DashboardService
	ExportService    *service.ExportService
}

func NewCoordinatorController(dashboard *service.DashboardService, export *service.ExportService) *CoordinatorController {
	return &CoordinatorController{
		DashboardService: dashboard,
		ExportService:    export,
	}
}

// Dashboard godoc
// @Summary Coordinator overview
// @Description Every supervisor with their students and rating, plus score statistics.
// @Tags coordinator
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=service.CoordinatorDashboard}
// @Router /api/coordinator/dashboard [get]
func (c *CoordinatorController) Dashboard(ctx *gin.Context) {
	dashboard, err := c.DashboardService.Coordinator(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, dashboard)
}

// Export godoc
// @Summary Export results
// @Tags coordinator
// @Security ApiKeyAuth
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /api/coordinator/export [get]
func (c *CoordinatorController) Export(ctx *gin.Context) {
	buf, filename, err := c.ExportService.ExportResults(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", "attachment; filename="+filename)
	ctx.Data(http.StatusOK, util.MimeXLSX, buf.Bytes())
}
