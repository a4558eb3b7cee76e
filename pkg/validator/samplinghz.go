package validator

import (
	"github.com/go-playground/validator/v10"
)

// Пределы частоты замеров устройства
const (
	MinSamplingHz = 1
	MaxSamplingHz = 100
)

// Валидатор корректной частоты замеров (1..100 Гц)
func validatorSamplingHz(fl validator.FieldLevel) bool {
	hz, ok := fl.Field().Interface().(uint)
	if !ok {
		return false
	}
	return hz >= MinSamplingHz && hz <= MaxSamplingHz
}
