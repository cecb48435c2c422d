package controller

import (
	"strings"
	"tp_portal_backend/internal/config"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ContactController gives the sign-up form the link that asks the admin for
// an identifier.
type ContactController struct {
	Config *config.Config
}

func NewContactController(cfg *config.Config) *ContactController {
	return &ContactController{Config: cfg}
}

// WhatsApp godoc
// @Summary Admin contact link
// @Description Builds the wa.me link with a prefilled request for a registration number, supervisor ID or coordinator ID.
// @Tags contact
// @Produce  json
// @Param   role query string true "student, supervisor or coordinator"
// @Param   reg query string false "registration number, students only"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response
// @Router /api/contact/whatsapp [get]
func (c *ContactController) WhatsApp(ctx *gin.Context) {
	role := model.UserRole(ctx.Query("role"))
	if !role.Valid() || role == model.Admin {
		util.BadRequest(ctx, "Invalid role")
		return
	}

	reg := strings.TrimSpace(ctx.Query("reg"))
	if role == model.Student && reg != "" {
		// show the number the way it will be stored when possible
		if normalized, err := util.NormalizeRegNumber(c.Config.Onboarding.RegNumberPrefix, reg); err == nil {
			reg = normalized
		}
	}

	util.Success(ctx, gin.H{
		"url": util.WhatsAppLink(c.Config.Onboarding.ContactPhone, role, reg),
	})
}
