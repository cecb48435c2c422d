package controller

import (
	"tp_portal_backend/internal/service"
	"tp_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SupervisorController struct {
	SupervisorService *service.SupervisorService
	ApprovalService   *service.ApprovalService
}

func NewSupervisorController(supervisors *service.SupervisorService, approvals *service.ApprovalService) *SupervisorController {
	return &SupervisorController{
		SupervisorService: supervisors,
		ApprovalService:   approvals,
	}
}

// swagger:model ScoreRequest
type ScoreRequest struct {
	Score *float64 `json:"score" binding:"required"`
}

// swagger:model DecisionRequest
type DecisionRequest struct {
	Approve *bool `json:"approve" binding:"required"`
}

// Students godoc
// @Summary Assigned students
// @Tags supervisor
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.User}
// @Router /api/supervisor/students [get]
func (c *SupervisorController) Students(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}

	list, err := c.SupervisorService.ListStudents(ctx.Request.Context(), s)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// SetScore godoc
// @Summary Enter a student's score
// @Tags supervisor
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   id path int true "Student user ID"
// @Param   body body ScoreRequest true "Score 0-100"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 400 {object} util.Response "Out of range"
// @Failure 403 {object} util.Response "Not your student"
// @Router /api/supervisor/students/{id}/score [put]
func (c *SupervisorController) SetScore(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx)
	if !ok {
		return
	}
	var req ScoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.HandleError(ctx, util.ErrScoreOutOfRange)
		return
	}

	student, err := c.SupervisorService.SetScore(ctx.Request.Context(), s, id, *req.Score)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, student)
}

// Remind godoc
// @Summary Remind a student to enter a school
// @Tags supervisor
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "Student user ID"
// @Success 201 {object} util.Response{data=model.Notification}
// @Failure 409 {object} util.Response "School already set"
// @Router /api/supervisor/students/{id}/remind [post]
func (c *SupervisorController) Remind(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx)
	if !ok {
		return
	}

	n, err := c.SupervisorService.SendReminder(ctx.Request.Context(), s, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, n)
}

// Approvals godoc
// @Summary Pending school change requests
// @Tags supervisor
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.SchoolChangeApproval}
// @Router /api/supervisor/approvals [get]
func (c *SupervisorController) Approvals(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}

	list, err := c.ApprovalService.ListPending(ctx.Request.Context(), s)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Decide godoc
// @Summary Approve or reject a school change
// @Tags supervisor
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   id path int true "Approval ID"
// @Param   body body DecisionRequest true "Decision"
// @Success 200 {object} util.Response{data=model.SchoolChangeApproval}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response "Already decided"
// @Router /api/supervisor/approvals/{id}/decision [post]
func (c *SupervisorController) Decide(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx)
	if !ok {
		return
	}
	var req DecisionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	approval, err := c.ApprovalService.Decide(ctx.Request.Context(), s, id, *req.Approve)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, approval)
}

// Reviews godoc
// @Summary Reviews received
// @Tags supervisor
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Review}
// @Router /api/supervisor/reviews [get]
func (c *SupervisorController) Reviews(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}

	list, err := c.SupervisorService.ListReviews(ctx.Request.Context(), s)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}
