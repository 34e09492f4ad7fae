package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type trimmer interface {
	trim()
}

// bindTrimmed decodes the JSON body, trims obj's text fields and only then
// applies the binding rules, so surrounding whitespace never counts toward
// a length rule.
func bindTrimmed(c *gin.Context, obj trimmer) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
	}
	obj.trim()
	return binding.Validator.ValidateStruct(obj)
}

// badRequest writes a 400 with one message per failing field when err came
// from binding validation, and the raw error otherwise.
func badRequest(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[jsonName(fe.Field())] = ruleMessage(fe)
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "fields": fields})
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "failed the " + fe.Tag() + " rule"
	}
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// serverError logs err and hides it from the client.
func serverError(c *gin.Context, logger *log.Logger, msg string, err error) {
	logger.Error(msg, "path", c.FullPath(), "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
}
