package controller

import (
	"tp_portal_backend/internal/service"
	"tp_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// SignUp godoc
// @Summary Create an account
// @Description Runs the onboarding checks of the selected role. Students need an allow-listed registration number and a valid supervisor ID, supervisors and coordinators consume their issued code.
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   body body service.SignUpInput true "Sign-up form"
// @Success 201 {object} util.Response{data=model.User} "Account created"
// @Failure 400 {object} util.Response "Invalid form"
// @Failure 403 {object} util.Response "Identifier not authorized"
// @Failure 409 {object} util.Response "Email, registration number or code already taken"
// @Router /api/auth/signup [post]
func (c *AuthController) SignUp(ctx *gin.Context) {
	var req service.SignUpInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.AuthService.SignUp(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, user)
}

// SignIn godoc
// @Summary Sign in
// @Description Signs in with the identifier of the selected role (registration number, supervisor ID or coordinator ID) or an email.
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   body body service.SignInInput true "Credentials"
// @Success 200 {object} util.Response{data=service.AuthResult}
// @Failure 401 {object} util.Response "Wrong credentials or role"
// @Failure 403 {object} util.Response "Account suspended"
// @Failure 404 {object} util.Response "No account for the identifier"
// @Router /api/auth/signin [post]
func (c *AuthController) SignIn(ctx *gin.Context) {
	var req service.SignInInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AuthService.SignIn(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// AdminSignIn godoc
// @Summary Admin sign in
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   body body service.AdminSignInInput true "Credentials"
// @Success 200 {object} util.Response{data=service.AuthResult}
// @Failure 401 {object} util.Response
// @Failure 403 {object} util.Response "Not an admin"
// @Router /api/auth/admin/signin [post]
func (c *AuthController) AdminSignIn(ctx *gin.Context) {
	var req service.AdminSignInInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AuthService.AdminSignIn(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// SignOut godoc
// @Summary Sign out
// @Description Revokes the current token.
// @Tags auth
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response
// @Router /api/auth/signout [post]
func (c *AuthController) SignOut(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.AuthService.SignOut(ctx.Request.Context(), claims); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
