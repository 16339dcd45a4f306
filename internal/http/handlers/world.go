package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/dreamworld-backend/internal/http/response"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	domainerrors "github.com/yungbote/dreamworld-backend/internal/pkg/errors"
	"github.com/yungbote/dreamworld-backend/internal/services"
)

type WorldHandler struct {
	world services.WorldService
}

func NewWorldHandler(world services.WorldService) *WorldHandler {
	return &WorldHandler{world: world}
}

// GET /api/stats
func (h *WorldHandler) Stats(c *gin.Context) {
	st, err := h.world.Stats(dbctx.Of(c.Request.Context()))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, st)
}

// GET /api/export
func (h *WorldHandler) Export(c *gin.Context) {
	out, err := h.world.Export(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="dream-world.json"`)
	response.RespondOK(c, out)
}

// POST /api/import
func (h *WorldHandler) Import(c *gin.Context) {
	var in services.WorldExport
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondDomainError(c, domainerrors.Validation("import", "invalid JSON body: "+err.Error()))
		return
	}
	if in.Version != "" && in.Version != services.ExportVersion {
		response.RespondDomainError(c, domainerrors.Validation("import", "unsupported export version "+in.Version))
		return
	}
	sum, err := h.world.Import(c.Request.Context(), &in)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, sum)
}

