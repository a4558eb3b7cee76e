package device

import (
	"context"
	"fmt"
	"io/ioutil"

	"github.com/kirsrus/simtemp/service"
	"github.com/kirsrus/simtemp/store"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

// Device символьный интерфейс симулируемого датчика. Инициируется через
// NewDevice. Показание отдаётся одной строкой "temp_mc=<значение>",
// повторное чтение со сдвинутой позиции возвращает конец данных
type Device struct {
	log   *logrus.Entry
	state store.DeviceStore
}

// ConfigDevice конфигурация Device
type ConfigDevice struct {
	Log *logrus.Logger
}

// NewDevice конструктор Device
func NewDevice(deviceStore store.DeviceStore, config *ConfigDevice) (service.DeviceSvc, error) {
	if config == nil {
		return nil, errors.New("не задана конфигурация config")
	}
	if config.Log == nil {
		config.Log = logrus.New()
		config.Log.Out = ioutil.Discard
	}
	if deviceStore == nil {
		return nil, errors.New("не указано хранилище состояния deviceStore")
	}

	res := &Device{
		log: config.Log.WithFields(map[string]interface{}{
			"module": "device",
			"scope":  "service",
		}),
		state: deviceStore,
	}
	return res, nil
}

// Read читает показание устройства с позиции offset. Два разных отказа
// различимы для вызывающего: конец данных (пустой результат без ошибки)
// и ошибка NotValid, когда буфер читателя меньше ответа
func (m Device) Read(offset int, count int) ([]byte, error) {
	if offset < 0 {
		return nil, errors.NotValidf("отрицательная позиция чтения %d", offset)
	}

	out := []byte(fmt.Sprintf("temp_mc=%d\n", m.state.TempMc()))
	if offset != 0 {
		// Показание читается за один раз, продолжения нет
		return []byte{}, nil
	}
	if count >= 0 && count < len(out) {
		return nil, errors.NotValidf("буфер размером %d меньше ответа из %d байт", count, len(out))
	}
	return out, nil
}

// Poll атомарно снимает и возвращает признак готовности нового замера
func (m Device) Poll() bool {
	return m.state.PollMask()
}

// WaitReady блокируется до появления нового замера или отмены ctx.
// Канал пробуждения берётся до проверки признака готовности, чтобы замер,
// пришедший между проверкой и ожиданием, не потерялся
func (m Device) WaitReady(ctx context.Context) error {
	for {
		notify := m.state.NotifyChan()
		if m.state.PollMask() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-notify:
		}
	}
}
