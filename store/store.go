package store

import (
	"time"

	"github.com/kirsrus/simtemp/model"
)

// DeviceStore состояние симулируемого датчика. Все поля устройства читаются
// и меняются только под внутренней блокировкой хранилища, так что семплер и
// внешние вызовы (атрибуты, чтение, опрос) могут работать одновременно
//go:generate mockery --dir . --name DeviceStore --output ./mocks
type DeviceStore interface {
	// Включён ли периодический опрос
	Enabled() bool
	// Выставляет признак включения периодического опроса
	SetEnabled(bool)

	// Текущая частота замеров в герцах
	SamplingHz() uint
	// Устанавливает частоту замеров. Значение вне пределов 1..100 Гц
	// отвергается ошибкой NotValid, состояние при этом не меняется
	SetSamplingHz(uint) error

	// Текущий порог тревоги в милли-градусах
	ThresholdMc() int
	// Устанавливает порог тревоги. Принимается любое целое
	SetThresholdMc(int)

	// Текущая температура в милли-градусах
	TempMc() int

	// Снимок текущего состояния замера
	Snapshot() model.Sample

	// Атомарно применяет новый замер: записывает температуру, увеличивает
	// счётчик, взводит признак готовности и будит всех ожидающих.
	// Если устройство выключено, замер не применяется (applied=false).
	// alert означает, что температура достигла порога
	ApplySample(tempMc int, at time.Time) (sample model.Sample, applied bool, alert bool)

	// Атомарно снимает и возвращает признак готовности нового замера.
	// Несколько замеров между двумя опросами сливаются в один признак
	PollMask() bool

	// Канал пробуждения: закрывается при каждом новом замере. Для ожидания
	// следующего замера канал нужно запрашивать заново
	NotifyChan() <-chan struct{}
}

// JournalStore журнал управляющих событий устройства (загрузки, изменения
// атрибутов, тревоги по порогу). Сами замеры в журнал не пишутся
//go:generate mockery --dir . --name JournalStore --output ./mocks
type JournalStore interface {
	// Проверяет, что ошибка err обозначает, что записи не найдены
	IsNotFound(err error) bool

	// Записывает факт загрузки устройства с действующей конфигурацией
	SetBoot(device string, samplingHz uint, thresholdMc int) error

	// Записывает изменение атрибута управления
	SetAttribute(name, value string) error
	// Возвращает изменения атрибутов не старше указанного периода
	Attributes(period time.Duration) ([]AttributeRecord, error)

	// Записывает тревогу по достижению порога
	SetAlert(sample model.Sample) error
	// Возвращает последнюю записанную тревогу. Если тревог ещё не было,
	// возвращается ошибка, проверяемая через IsNotFound
	LastAlert() (*AlertRecord, error)

	// Очищает записи в журнале старше days дней
	Clean(days int) error
}

// AttributeRecord запись журнала об изменении атрибута
type AttributeRecord struct {
	// Идентификатор записи в БД
	ID        int        `json:"id"`
	CreatedAt *time.Time `json:"created_at"`
	Name      string     `json:"name"`
	Value     string     `json:"value"`
}

// AlertRecord запись журнала о тревоге по порогу
type AlertRecord struct {
	// Идентификатор записи в БД
	ID          int        `json:"id"`
	CreatedAt   *time.Time `json:"created_at"`
	TempMc      int        `json:"temp_mc"`
	ThresholdMc int        `json:"threshold_mc"`
	SampleCount uint64     `json:"sample_count"`
}
