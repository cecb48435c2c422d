package controller

import (
	"strconv"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/repository"
	"tp_portal_backend/internal/service"
	"tp_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	CodeService      *service.CodeService
	UserService      *service.UserService
	DashboardService *service.DashboardService
}

func NewAdminController(codes *service.CodeService, users *service.UserService, dashboard *service.DashboardService) *AdminController {
	return &AdminController{
		CodeService:      codes,
		UserService:      users,
		DashboardService: dashboard,
	}
}

// swagger:model IssueCodeRequest
type IssueCodeRequest struct {
	Type model.CodeType `json:"type" binding:"required"`
}

// swagger:model RegistrationNumberRequest
type RegistrationNumberRequest struct {
	Number string `json:"number" binding:"required"`
}

// IssueCode godoc
// @Summary Issue an access code
// @Description Generates a unique 6 digit supervisor ID or 10 digit coordinator ID.
// @Tags admin
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   body body IssueCodeRequest true "Code type"
// @Success 201 {object} util.Response{data=model.AccessCode}
// @Failure 400 {object} util.Response "Unknown type"
// @Router /api/admin/codes [post]
func (c *AdminController) IssueCode(ctx *gin.Context) {
	var req IssueCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	code, err := c.CodeService.Issue(ctx.Request.Context(), req.Type)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, code)
}

// ListCodes godoc
// @Summary List access codes
// @Tags admin
// @Security ApiKeyAuth
// @Produce  json
// @Param   type query string false "supervisor or coordinator"
// @Param   used query bool false "filter by use"
// @Success 200 {object} util.Response{data=[]model.AccessCode}
// @Router /api/admin/codes [get]
func (c *AdminController) ListCodes(ctx *gin.Context) {
	filter := repository.CodeFilter{Type: model.CodeType(ctx.Query("type"))}
	if usedStr := ctx.Query("used"); usedStr != "" {
		used, err := strconv.ParseBool(usedStr)
		if err != nil {
			util.BadRequest(ctx, "used must be true or false")
			return
		}
		filter.Used = &used
	}

	list, err := c.CodeService.ListCodes(ctx.Request.Context(), filter)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// AddRegistrationNumber godoc
// @Summary Allow a registration number
// @Tags admin
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   body body RegistrationNumberRequest true "Registration number, with or without the prefix"
// @Success 201 {object} util.Response{data=model.RegistrationNumber}
// @Failure 400 {object} util.Response "Bad format"
// @Failure 409 {object} util.Response "Already allowed"
// @Router /api/admin/registration-numbers [post]
func (c *AdminController) AddRegistrationNumber(ctx *gin.Context) {
	var req RegistrationNumberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	rn, err := c.CodeService.AddRegistrationNumber(ctx.Request.Context(), req.Number)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, rn)
}

// ListRegistrationNumbers godoc
// @Summary List allowed registration numbers
// @Tags admin
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.RegistrationNumber}
// @Router /api/admin/registration-numbers [get]
func (c *AdminController) ListRegistrationNumbers(ctx *gin.Context) {
	list, err := c.CodeService.ListRegistrationNumbers(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// DeleteRegistrationNumber godoc
// @Summary Remove a registration number
// @Description The number goes in the query since it contains slashes.
// @Tags admin
// @Security ApiKeyAuth
// @Produce  json
// @Param   number query string true "Registration number"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/admin/registration-numbers [delete]
func (c *AdminController) DeleteRegistrationNumber(ctx *gin.Context) {
	number := ctx.Query("number")
	if number == "" {
		util.BadRequest(ctx, "number is required")
		return
	}

	if err := c.CodeService.DeleteRegistrationNumber(ctx.Request.Context(), number); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ImportRegistrationNumbers godoc
// @Summary Bulk allow registration numbers
// @Description Reads the first column of the first sheet of an xlsx file.
// @Tags admin
// @Security ApiKeyAuth
// @Accept  multipart/form-data
// @Produce  json
// @Param   file formData file true "xlsx file"
// @Success 200 {object} util.Response{data=service.ImportResult}
// @Failure 400 {object} util.Response
// @Router /api/admin/registration-numbers/import [post]
func (c *AdminController) ImportRegistrationNumbers(ctx *gin.Context) {
	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "Please choose a file to upload")
		return
	}

	file, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	result, err := c.CodeService.ImportRegistrationNumbers(ctx.Request.Context(), file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// ListUsers godoc
// @Summary List users
// @Tags admin
// @Security ApiKeyAuth
// @Produce  json
// @Param   page query int false "page" default(1)
// @Param   pageSize query int false "page size" default(20)
// @Param   role query string false "role filter"
// @Param   search query string false "name or email"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/users [get]
func (c *AdminController) ListUsers(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("pageSize", "20"))
	filter := repository.UserFilter{
		Role:   model.UserRole(ctx.Query("role")),
		Search: ctx.Query("search"),
	}

	users, total, err := c.UserService.ListUsers(ctx.Request.Context(), filter, page, pageSize)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  users,
		Total: total,
		Page:  page,
		Limit: pageSize,
	})
}

// Analytics godoc
// @Summary User counts by role
// @Tags admin
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=service.Analytics}
// @Router /api/admin/analytics [get]
func (c *AdminController) Analytics(ctx *gin.Context) {
	analytics, err := c.DashboardService.Analytics(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, analytics)
}

// DeleteUser godoc
// @Summary Delete a user
// @Tags admin
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "User ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "Admins cannot be deleted"
// @Failure 404 {object} util.Response
// @Router /api/admin/users/{id} [delete]
func (c *AdminController) DeleteUser(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		return
	}

	if err := c.UserService.DeleteUser(ctx.Request.Context(), id); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ToggleSuspend godoc
// @Summary Suspend or reactivate a user
// @Tags admin
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "User ID"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 403 {object} util.Response
// @Router /api/admin/users/{id}/suspend [post]
func (c *AdminController) ToggleSuspend(ctx *gin.Context) {
	id, ok := idParam(ctx)
	if !ok {
		return
	}

	user, err := c.UserService.ToggleSuspend(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, user)
}
