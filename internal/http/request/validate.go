package request

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	domainerrors "github.com/yungbote/dreamworld-backend/internal/pkg/errors"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator. Field names in messages follow json tags.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("layer", func(fl validator.FieldLevel) bool {
			_, ok := world.ParseLayer(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool {
			return world.ValidColor(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// BindJSON decodes the body into dst and validates it. Every failure is a validation error.
func BindJSON(c *gin.Context, op string, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return domainerrors.Validation(op, "invalid JSON body: "+err.Error())
	}
	return Struct(op, dst)
}

func Struct(op string, dst any) error {
	if err := Validator().Struct(dst); err != nil {
		return domainerrors.Validation(op, describe(err))
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "min", "gte":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max", "lte":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "layer":
			parts = append(parts, field+" must be PRIMARY, UPPER or LOWER")
		case "hexcolor6":
			parts = append(parts, field+" must look like #rrggbb")
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
