package sampler

import (
	"context"
	"io/ioutil"
	"math/rand"
	"sync"
	"time"

	"github.com/kirsrus/simtemp/controller"
	"github.com/kirsrus/simtemp/model"
	"github.com/kirsrus/simtemp/pkg/tool"
	"github.com/kirsrus/simtemp/store"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

const (
	// Величина канала событий замеров
	eventCapacity = 10
	// Зерно генератора шума по умолчанию
	defaultRngSeed = 1
)

// Sampler периодический опрос симулируемого датчика. Инициируется через
// NewSampler. Пока опрос включён, работает одна горутина цикла замеров:
// она применяет очередной замер к состоянию устройства и взводит таймер
// на интервал, каждый раз заново вычисленный из текущей частоты. Выключение
// синхронное: Disable возвращается только после полного завершения цикла,
// так что повторное включение не может пересечься с хвостом предыдущего
type Sampler struct {
	ctx context.Context
	log *logrus.Entry

	state store.DeviceStore
	rng   *rand.Rand

	// Канал событий замеров для внешних потребителей
	event chan model.SampleEvent

	// Защищает каналы управления циклом при включении и выключении
	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// ConfigSampler конфигурация Sampler
type ConfigSampler struct {
	Log *logrus.Logger
	// Зерно генератора случайного шума. nil — зерно по умолчанию; явный
	// ноль от отсутствующего ключа отличим
	RngSeed *int64
	// Величина канала событий замеров
	EventCapacity uint
}

// NewSampler конструктор Sampler
func NewSampler(ctx context.Context, deviceStore store.DeviceStore, config *ConfigSampler) (controller.SamplerCtl, error) {
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

	seed := int64(defaultRngSeed)
	if config.RngSeed != nil {
		seed = *config.RngSeed
	}
	capacity := uint(eventCapacity)
	if config.EventCapacity != 0 {
		capacity = config.EventCapacity
	}

	res := &Sampler{
		ctx: ctx,
		log: config.Log.WithFields(map[string]interface{}{
			"module": "sampler",
			"scope":  "controller",
		}),
		state: deviceStore,
		rng:   rand.New(rand.NewSource(seed)),
		event: make(chan model.SampleEvent, capacity),
	}
	return res, nil
}

// Enable включает периодический опрос. Первый замер выполняется без
// задержки. Повторное включение уже включённого опроса ничего не делает
func (m *Sampler) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return
	}

	m.state.SetEnabled(true)
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.loop(m.stop, m.done)
}

// Disable выключает периодический опрос и дожидается полного завершения
// цикла замеров. Признак включения снимается до остановки цикла, поэтому
// замер, уже вынутый из таймера, не применится к состоянию. Ожидание
// выполняется без блокировки состояния устройства, так что завершающийся
// замер не может попасть с ним во взаимную блокировку
func (m *Sampler) Disable() {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	// Признак меняется под той же блокировкой, что и каналы управления:
	// цикл живёт ровно пока взведён признак
	m.state.SetEnabled(false)
	m.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Enabled включён ли периодический опрос
func (m *Sampler) Enabled() bool {
	return m.state.Enabled()
}

// Цикл замеров. Живёт от Enable до Disable или отмены контекста
func (m *Sampler) loop(stop, done chan struct{}) {
	defer close(done)
	m.log.Info("старт периодического опроса")

	// Нулевой интервал — первый замер срабатывает сразу
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-m.ctx.Done():
			m.log.Info("завершение периодического опроса")
			return
		case <-stop:
			m.log.Info("периодический опрос остановлен")
			return
		case now := <-timer.C:
			m.tick(now)
			// Интервал вычисляется заново при каждом взводе, так что
			// изменение частоты подхватывается со следующего замера
			timer.Reset(tool.SamplingInterval(m.state.SamplingHz()))
		}
	}
}

// Один замер: новая температура, атомарное применение к состоянию и
// отсылка события потребителям
func (m *Sampler) tick(now time.Time) {
	next := NextTempMc(m.state.TempMc(), m.rng)

	sample, applied, alert := m.state.ApplySample(next, now)
	if !applied {
		// Устройство выключили между срабатыванием таймера и замером
		return
	}

	select {
	case m.event <- model.SampleEvent{Sample: sample, Alert: alert}:
	default:
		m.log.Warn("очередь event переполнена")
	}
}

// EmmitSample ожидает очередной замер устройства и возвращает его данные.
// При штатном завершении работы возвращается ошибка context.Canceled
func (m *Sampler) EmmitSample() (*model.SampleEvent, error) {
	select {
	case <-m.ctx.Done():
		return nil, m.ctx.Err()
	case event := <-m.event:
		return &event, nil
	}
}
