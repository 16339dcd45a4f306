package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/http/request"
	"github.com/yungbote/dreamworld-backend/internal/http/response"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	domainerrors "github.com/yungbote/dreamworld-backend/internal/pkg/errors"
	"github.com/yungbote/dreamworld-backend/internal/services"
)

type LocationHandler struct {
	locations services.LocationService
}

func NewLocationHandler(locations services.LocationService) *LocationHandler {
	return &LocationHandler{locations: locations}
}

// GET /api/locations[?layer=]
func (h *LocationHandler) ListLocations(c *gin.Context) {
	var layer *world.Layer
	if raw := strings.TrimSpace(c.Query("layer")); raw != "" {
		l, ok := world.ParseLayer(raw)
		if !ok {
			response.RespondDomainError(c, domainerrors.Validation("list locations", "layer must be PRIMARY, UPPER or LOWER"))
			return
		}
		layer = &l
	}
	out, err := h.locations.List(dbctx.Of(c.Request.Context()), layer)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/locations/:id
func (h *LocationHandler) GetLocation(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	loc, err := h.locations.Get(dbctx.Of(c.Request.Context()), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, loc)
}

// POST /api/locations
func (h *LocationHandler) CreateLocation(c *gin.Context) {
	var req request.CreateLocation
	if err := request.BindJSON(c, "create location", &req); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	loc, err := h.locations.Create(dbctx.Of(c.Request.Context()), req.Input())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, loc)
}

// PATCH /api/locations/:id
func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	var req request.PatchLocation
	if err := request.BindJSON(c, "update location", &req); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	loc, err := h.locations.Update(dbctx.Of(c.Request.Context()), id, req.Patch())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, loc)
}

// POST /api/locations/merge
func (h *LocationHandler) MergeLocations(c *gin.Context) {
	var req request.MergeLocations
	if err := request.BindJSON(c, "merge locations", &req); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	loc, err := h.locations.Merge(dbctx.Of(c.Request.Context()), req.Request())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, loc)
}

// GET /api/locations/:id/transits
func (h *LocationHandler) ListTransits(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	out, err := h.locations.Transits(dbctx.Of(c.Request.Context()), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, out)
}
