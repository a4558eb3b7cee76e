package state

import (
	"io/ioutil"
	"sync"
	"time"

	"github.com/kirsrus/simtemp/model"
	"github.com/kirsrus/simtemp/pkg/validator"
	"github.com/kirsrus/simtemp/store"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

// Значения устройства по умолчанию
const (
	DefaultSamplingHz  = 2
	DefaultTempMc      = 40000
	DefaultThresholdMc = 45000
)

// State состояние симулируемого датчика. Инициируется через NewState.
// Все семь полей устройства защищены одной блокировкой mu; критические
// секции короткие и никогда не содержат блокирующих операций. Пробуждение
// ожидающих (закрытие канала notify) не блокирует и выполняется прямо в
// критической секции
type State struct {
	log *logrus.Entry

	mu          sync.Mutex
	enabled     bool
	samplingHz  uint
	tempMc      int
	thresholdMc int
	dataReady   bool
	sampleCount uint64
	// Канал пробуждения ожидающих. Закрывается при новом замере и тут же
	// заменяется новым
	notify chan struct{}
}

// ConfigState конфигурация State
type ConfigState struct {
	Log *logrus.Logger

	// Начальная частота замеров (1..100 Гц)
	SamplingHz uint `validate:"samplinghz"`

	// Начальный порог тревоги в милли-градусах. nil — порог по умолчанию;
	// явный ноль от отсутствующего ключа отличим
	ThresholdMc *int

	// Начальная температура в милли-градусах
	TempMc int
}

// NewState конструктор State. Нулевые поля конфигурации заменяются
// значениями по умолчанию до валидации
func NewState(config *ConfigState) (store.DeviceStore, error) {
	if config == nil {
		return nil, errors.New("не задана конфигурация config")
	}
	if config.Log == nil {
		config.Log = logrus.New()
		config.Log.Out = ioutil.Discard
	}
	if config.SamplingHz == 0 {
		config.SamplingHz = DefaultSamplingHz
	}
	if config.TempMc == 0 {
		config.TempMc = DefaultTempMc
	}
	thresholdMc := DefaultThresholdMc
	if config.ThresholdMc != nil {
		thresholdMc = *config.ThresholdMc
	}
	if err := validator.Get().Validate(config); err != nil {
		return nil, errors.Annotate(err, "некорректная конфигурация устройства")
	}

	res := &State{
		log: config.Log.WithFields(map[string]interface{}{
			"module": "state",
			"scope":  "store",
		}),
		enabled:     false,
		samplingHz:  config.SamplingHz,
		tempMc:      config.TempMc,
		thresholdMc: thresholdMc,
		dataReady:   false,
		sampleCount: 0,
		notify:      make(chan struct{}),
	}
	return res, nil
}

// Enabled включён ли периодический опрос
func (m *State) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// SetEnabled выставляет признак включения периодического опроса
func (m *State) SetEnabled(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = v
}

// SamplingHz текущая частота замеров в герцах
func (m *State) SamplingHz() uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.samplingHz
}

// SetSamplingHz устанавливает частоту замеров. Проверка выполняется до
// изменения состояния: некорректное значение отвергается, текущая частота
// остаётся прежней. На уже взведённый интервал замера новая частота не
// влияет, она будет прочитана при взводе следующего
func (m *State) SetSamplingHz(hz uint) error {
	if hz < validator.MinSamplingHz || hz > validator.MaxSamplingHz {
		return errors.NotValidf("частота %d вне пределов %d..%d Гц",
			hz, validator.MinSamplingHz, validator.MaxSamplingHz)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samplingHz = hz
	return nil
}

// ThresholdMc текущий порог тревоги в милли-градусах
func (m *State) ThresholdMc() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.thresholdMc
}

// SetThresholdMc устанавливает порог тревоги. Принимается любое целое
func (m *State) SetThresholdMc(mc int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholdMc = mc
}

// TempMc текущая температура в милли-градусах
func (m *State) TempMc() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tempMc
}

// Snapshot снимок текущего состояния замера
func (m *State) Snapshot() model.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return model.Sample{
		TempMc:      m.tempMc,
		ThresholdMc: m.thresholdMc,
		SampleCount: m.sampleCount,
	}
}

// ApplySample атомарно применяет новый замер. Если устройство к этому
// моменту уже выключено (выключение случилось между срабатыванием таймера
// и захватом блокировки), замер не применяется
func (m *State) ApplySample(tempMc int, at time.Time) (model.Sample, bool, bool) {
	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return model.Sample{}, false, false
	}

	m.tempMc = tempMc
	m.sampleCount++
	m.dataReady = true
	alert := m.tempMc >= m.thresholdMc
	sample := model.Sample{
		TempMc:      m.tempMc,
		ThresholdMc: m.thresholdMc,
		SampleCount: m.sampleCount,
		CreateAt:    at,
	}

	// Будим всех ожидающих: и при обычном замере, и при достижении порога
	// пробуждение одно и то же
	close(m.notify)
	m.notify = make(chan struct{})
	m.mu.Unlock()

	return sample, true, alert
}

// PollMask атомарно снимает и возвращает признак готовности нового замера
func (m *State) PollMask() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ready := m.dataReady
	m.dataReady = false
	return ready
}

// NotifyChan возвращает текущий канал пробуждения. Канал закрывается при
// следующем замере; для ожидания очередного замера его нужно брать заново
func (m *State) NotifyChan() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notify
}
