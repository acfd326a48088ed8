package controllers

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	orderCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	registerOnce     sync.Once
)

// registerValidators adds the order_code tag to gin's validator engine.
func registerValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("order_code", func(fl validator.FieldLevel) bool {
				return validOrderCode(fl.Field().String())
			})
		}
	})
}

func validOrderCode(code string) bool {
	return orderCodePattern.MatchString(code)
}
