package controller

import (
	"strconv"
	"tp_portal_backend/internal/model"
	"tp_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// session returns the caller's session, replying 401 when there is none.
func session(ctx *gin.Context) (model.Session, bool) {
	s, ok := util.SessionFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
	}
	return s, ok
}

// idParam parses the :id path parameter, replying 400 when it is not a number.
func idParam(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		util.BadRequest(ctx, "Invalid ID")
		return 0, false
	}
	return uint(id), true
}
