package service

import (
	"context"

	"github.com/kirsrus/simtemp/model"
)

// DeviceSvc символьный интерфейс устройства (аналог /dev/simtemp0)
//go:generate mockery --dir . --name DeviceSvc --output ./mocks
type DeviceSvc interface {
	// Читает показание устройства с позиции offset. count — размер буфера
	// читателя: если ответ в него не помещается, возвращается ошибка
	// NotValid; count < 0 означает, что буфер не ограничен. Чтение с
	// ненулевой позиции возвращает пустой результат (конец данных)
	Read(offset int, count int) ([]byte, error)
	// Атомарно снимает и возвращает признак готовности нового замера
	Poll() bool
	// Блокируется до появления нового замера или отмены ctx. Признак
	// готовности при пробуждении снимается
	WaitReady(ctx context.Context) error
}

// WebSvc сервис WEB-интерфейса устройства
//go:generate mockery --dir . --name WebSvc --output ./mocks
type WebSvc interface {
	// Хэндлер чтения показания устройства
	DeviceRead(string)
	// Хэндлер опроса готовности нового замера
	DevicePoll(string)
	// Хэндлер атрибутов управления. Имя атрибута ищется в параметре :attr
	Attributes(string)
	// Хэндлер журнала устройства: изменения атрибутов и последняя тревога
	Journal(string)
	// Хэндлер WebSocket канала с событиями замеров
	Feed(string)
	// Отсылка события очередного замера подписчикам WebSocket канала
	SampleChanged(model.SampleEvent)
}
