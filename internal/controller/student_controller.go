package controller

import (
	"tp_portal_backend/internal/service"
	"tp_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StudentController struct {
	ApprovalService  *service.ApprovalService
	WelcomeService   *service.WelcomeService
	ReviewService    *service.ReviewService
	DashboardService *service.DashboardService
}

func NewStudentController(approvals *service.ApprovalService, welcome *service.WelcomeService, reviews *service.ReviewService, dashboard *service.DashboardService) *StudentController {
	return &StudentController{
		ApprovalService:  approvals,
		WelcomeService:   welcome,
		ReviewService:    reviews,
		DashboardService: dashboard,
	}
}

// swagger:model SaveSchoolRequest
type SaveSchoolRequest struct {
	School string `json:"school"`
}

// SaveSchool godoc
// @Summary Set teaching practice school
// @Description The first school is stored directly. Changing it opens a request for the supervisor; the stored school stays until approval.
// @Tags student
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   body body SaveSchoolRequest true "School name"
// @Success 200 {object} util.Response{data=service.SaveSchoolResult} "outcome is saved, pending or unchanged"
// @Failure 400 {object} util.Response "Empty school or no supervisor"
// @Router /api/student/school [put]
func (c *StudentController) SaveSchool(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}
	var req SaveSchoolRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ApprovalService.SaveSchool(ctx.Request.Context(), s, req.School)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Approvals godoc
// @Summary Own school change requests
// @Tags student
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.SchoolChangeApproval}
// @Router /api/student/approvals [get]
func (c *StudentController) Approvals(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}

	list, err := c.ApprovalService.ListForStudent(ctx.Request.Context(), s)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Congratulation godoc
// @Summary Score congratulation state
// @Tags student
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=service.Congratulation}
// @Router /api/student/congratulation [get]
func (c *StudentController) Congratulation(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}

	result, err := c.WelcomeService.Congratulation(ctx.Request.Context(), s)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// AckCongratulation godoc
// @Summary Close the congratulation dialog
// @Tags student
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "No score yet"
// @Router /api/student/congratulation/ack [post]
func (c *StudentController) AckCongratulation(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}

	if err := c.WelcomeService.AckCongratulation(ctx.Request.Context(), s); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Certificate godoc
// @Summary Result document data
// @Tags student
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=service.Certificate}
// @Failure 403 {object} util.Response "No score yet"
// @Router /api/student/certificate [get]
func (c *StudentController) Certificate(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}

	cert, err := c.DashboardService.Certificate(ctx.Request.Context(), s)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, cert)
}

// SubmitReview godoc
// @Summary Review the supervisor
// @Description One review per student, rating 1 to 5.
// @Tags student
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   body body service.ReviewInput true "Review"
// @Success 201 {object} util.Response{data=model.Review}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response "Already reviewed"
// @Router /api/student/reviews [post]
func (c *StudentController) SubmitReview(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}
	var req service.ReviewInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	review, err := c.ReviewService.Submit(ctx.Request.Context(), s, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, review)
}
