package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/dreamworld-backend/internal/http/request"
	"github.com/yungbote/dreamworld-backend/internal/http/response"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	"github.com/yungbote/dreamworld-backend/internal/services"
)

type EntityHandler struct {
	entities services.EntityService
}

func NewEntityHandler(entities services.EntityService) *EntityHandler {
	return &EntityHandler{entities: entities}
}

// GET /api/entities[?location_id=]
func (h *EntityHandler) ListEntities(c *gin.Context) {
	locationID, err := queryID(c, "location_id")
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	out, err := h.entities.List(dbctx.Of(c.Request.Context()), locationID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/entities/:id
func (h *EntityHandler) GetEntity(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	e, err := h.entities.Get(dbctx.Of(c.Request.Context()), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, e)
}

// POST /api/entities
func (h *EntityHandler) CreateEntity(c *gin.Context) {
	var req request.CreateEntity
	if err := request.BindJSON(c, "create entity", &req); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	e, err := h.entities.Create(dbctx.Of(c.Request.Context()), req.Input())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, e)
}
