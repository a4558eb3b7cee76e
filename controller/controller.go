package controller

import (
	"github.com/kirsrus/simtemp/model"
)

// SamplerCtl контроллер периодического опроса симулируемого датчика
//go:generate mockery --dir . --name SamplerCtl --output ./mocks
type SamplerCtl interface {
	// Ожидает очередной замер устройства и возвращает его данные
	EmmitSample() (*model.SampleEvent, error)
	// Включает периодический опрос. Первый замер выполняется без задержки
	Enable()
	// Выключает периодический опрос. Возвращается только после того, как
	// гарантированно не останется ни одного незавершённого замера
	Disable()
	// Включён ли периодический опрос
	Enabled() bool
}
