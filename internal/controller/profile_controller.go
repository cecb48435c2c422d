package controller

import (
	"tp_portal_backend/internal/service"
	"tp_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ProfileController serves the signed-in user's own account for every role.
type ProfileController struct {
	AuthService    *service.AuthService
	UserService    *service.UserService
	WelcomeService *service.WelcomeService
}

func NewProfileController(auth *service.AuthService, users *service.UserService, welcome *service.WelcomeService) *ProfileController {
	return &ProfileController{
		AuthService:    auth,
		UserService:    users,
		WelcomeService: welcome,
	}
}

// swagger:model UpdateNameRequest
type UpdateNameRequest struct {
	Name string `json:"name"`
}

// swagger:model DeleteAccountRequest
type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

// GetProfile godoc
// @Summary Current account
// @Tags profile
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=model.User}
// @Router /api/profile [get]
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}

	user, err := c.AuthService.CurrentUser(ctx.Request.Context(), s)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// UpdateName godoc
// @Summary Change display name
// @Tags profile
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   body body UpdateNameRequest true "New name"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 400 {object} util.Response "Empty name"
// @Router /api/profile/name [put]
func (c *ProfileController) UpdateName(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}
	var req UpdateNameRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.UpdateName(ctx.Request.Context(), s, req.Name)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// UploadPhoto godoc
// @Summary Upload profile photo
// @Description Accepts an image of at most 5MB. The type is checked from the file content.
// @Tags profile
// @Security ApiKeyAuth
// @Accept  multipart/form-data
// @Produce  json
// @Param   photo formData file true "Image file"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 400 {object} util.Response "Too large or not an image"
// @Router /api/profile/photo [post]
func (c *ProfileController) UploadPhoto(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}

	header, err := ctx.FormFile("photo")
	if err != nil {
		util.BadRequest(ctx, "Please choose a file to upload")
		return
	}
	if header.Size > util.MaxPhotoSize {
		util.HandleError(ctx, util.ErrFileTooLarge)
		return
	}

	file, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	user, err := c.UserService.UploadPhoto(ctx.Request.Context(), s, file, header.Size)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// ChangePassword godoc
// @Summary Change password
// @Tags profile
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   body body service.ChangePasswordInput true "Passwords"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 401 {object} util.Response "Current password is wrong"
// @Router /api/profile/password [put]
func (c *ProfileController) ChangePassword(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}
	var req service.ChangePasswordInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.AuthService.ChangePassword(ctx.Request.Context(), s, req); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// DeleteAccount godoc
// @Summary Delete own account
// @Description Requires the current password. Frees the supervisor or coordinator code, or removes the student's registration number from the allow-list.
// @Tags profile
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   body body DeleteAccountRequest true "Current password"
// @Success 200 {object} util.Response
// @Failure 401 {object} util.Response
// @Router /api/profile [delete]
func (c *ProfileController) DeleteAccount(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}
	var req DeleteAccountRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.AuthService.DeleteAccount(ctx.Request.Context(), s, req.Password); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// Welcome godoc
// @Summary Welcome dialog state
// @Description first_time until the first acknowledgement, welcome_back after the configured absence, none otherwise.
// @Tags profile
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=service.WelcomeState}
// @Router /api/welcome [get]
func (c *ProfileController) Welcome(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}

	state, err := c.WelcomeService.WelcomeState(ctx.Request.Context(), s)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// AckWelcome godoc
// @Summary Close the welcome dialog
// @Tags profile
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response
// @Router /api/welcome/ack [post]
func (c *ProfileController) AckWelcome(ctx *gin.Context) {
	s, ok := session(ctx)
	if !ok {
		return
	}

	if err := c.WelcomeService.AckWelcome(ctx.Request.Context(), s); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
