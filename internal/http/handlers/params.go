package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	domainerrors "github.com/yungbote/dreamworld-backend/internal/pkg/errors"
)

func pathID(c *gin.Context, name string) (uint64, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, domainerrors.Validation("path", name+" must be a positive integer")
	}
	return id, nil
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domainerrors.Validation("query", name+" must be an integer")
	}
	return n, nil
}

func queryID(c *gin.Context, name string) (*uint64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, domainerrors.Validation("query", name+" must be a positive integer")
	}
	return &id, nil
}
