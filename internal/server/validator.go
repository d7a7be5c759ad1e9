package server

import (
	"github.com/go-playground/validator/v10"

	"github.com/fmmarmello/finAI/internal/finance"
)

type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator создает валидатор на базе go-playground/validator.
// Тег yyyymmdd принимает календарную дату в формате 2006-01-02.
func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("yyyymmdd", isCalendarDate)
	return &CustomValidator{validator: v}
}

// Validate запускает проверку структуры по тегам.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func isCalendarDate(fl validator.FieldLevel) bool {
	_, err := finance.ParseDate(fl.Field().String())
	return err == nil
}
