package db

import (
	"context"
	"io/ioutil"
	"time"

	"github.com/kirsrus/simtemp/model"
	"github.com/kirsrus/simtemp/store"

	"github.com/juju/errors"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const (
	cacheDuration = 10 * time.Minute
	cacheCleared  = time.Hour
	// Ключ кэша последней тревоги
	lastAlertKey = "last_alert"
)

// Db журнал устройства в БД. Инициируется через NewDb
type Db struct {
	ctx context.Context
	log *logrus.Entry
	db  *gorm.DB

	alertCache *cache.Cache
}

// ConfigDb конфигурация класса Db
type ConfigDb struct {
	Log    *logrus.Logger
	DbFile string
}

// NewDb конструктор класса Db
func NewDb(ctx context.Context, config *ConfigDb) (store.JournalStore, error) {
	if config == nil {
		return nil, errors.New("не указана конфигурация")
	}
	if config.Log == nil {
		config.Log = logrus.New()
		config.Log.Out = ioutil.Discard
	}
	if config.DbFile == "" {
		return nil, errors.New("в конфигурации не указан файл БД")
	}

	// Подключаемся к БД и запускаем миграции
	conn, err := gorm.Open(sqlite.Open(config.DbFile), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, errors.Annotate(err, "ошибка подключения к файлу БД")
	}
	err = conn.AutoMigrate(Boot{}, Attribute{}, Alert{})
	if err != nil {
		return nil, errors.Annotate(err, "ошибка миграции БД")
	}

	db := Db{
		ctx: ctx,
		log: config.Log.WithFields(map[string]interface{}{
			"module": "db",
			"scope":  "store",
		}),
		db: conn,

		alertCache: cache.New(cacheDuration, cacheCleared),
	}
	return &db, nil
}

// IsNotFound проверяет, что ошибка err обозначает, что записи не найдены
func (m Db) IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return err.Error() == gorm.ErrRecordNotFound.Error()
}

// SetBoot записывает факт загрузки устройства с действующей конфигурацией
func (m Db) SetBoot(device string, samplingHz uint, thresholdMc int) error {
	boot := Boot{
		Device:      device,
		SamplingHz:  samplingHz,
		ThresholdMc: thresholdMc,
	}
	if err := m.db.Create(&boot).Error; err != nil {
		return errors.Trace(err)
	}
	m.log.Debugf("загрузка %s записана в журнал", device)
	return nil
}

// SetAttribute записывает изменение атрибута управления
func (m Db) SetAttribute(name, value string) error {
	if name == "" {
		return errors.New("не передано имя атрибута")
	}
	attribute := Attribute{
		Name:  name,
		Value: value,
	}
	if err := m.db.Create(&attribute).Error; err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Attributes возвращает изменения атрибутов не старше указанного периода
func (m Db) Attributes(period time.Duration) ([]store.AttributeRecord, error) {
	deadline := time.Now().Add(-period)
	var attributes []Attribute
	err := m.db.Where("created_at > ?", deadline).Order("id").Find(&attributes).Error
	if err != nil {
		return nil, errors.Trace(err)
	}

	res := make([]store.AttributeRecord, 0, len(attributes))
	for _, v := range attributes {
		res = append(res, v.ToRecord())
	}
	return res, nil
}

// SetAlert записывает тревогу по достижению порога
func (m Db) SetAlert(sample model.Sample) error {
	alert := Alert{
		TempMc:      sample.TempMc,
		ThresholdMc: sample.ThresholdMc,
		SampleCount: sample.SampleCount,
	}
	if err := m.db.Create(&alert).Error; err != nil {
		return errors.Trace(err)
	}
	m.alertCache.Set(lastAlertKey, alert, cache.DefaultExpiration)
	m.log.Debugf("тревога temp_mc=%d при пороге threshold_mc=%d записана в журнал",
		alert.TempMc, alert.ThresholdMc)
	return nil
}

// LastAlert возвращает последнюю записанную тревогу. Если тревог ещё не
// было, возвращается gorm.ErrRecordNotFound (проверяется через IsNotFound)
func (m Db) LastAlert() (*store.AlertRecord, error) {
	if value, found := m.alertCache.Get(lastAlertKey); found {
		alert := value.(Alert)
		res := alert.ToRecord()
		return &res, nil
	}

	var alert Alert
	err := m.db.Order("id desc").Take(&alert).Error
	if err != nil {
		if err.Error() == gorm.ErrRecordNotFound.Error() {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, errors.Trace(err)
	}
	m.alertCache.Set(lastAlertKey, alert, cache.DefaultExpiration)

	res := alert.ToRecord()
	return &res, nil
}

// Clean очищает записи в журнале старше days дней
func (m Db) Clean(days int) error {
	if days <= 0 {
		return errors.NotValidf("количество дней %d", days)
	}
	deadline := time.Now().AddDate(0, 0, -days)

	if err := m.db.Where("created_at < ?", deadline).Delete(&Alert{}).Error; err != nil {
		return errors.Trace(err)
	}
	if err := m.db.Where("created_at < ?", deadline).Delete(&Attribute{}).Error; err != nil {
		return errors.Trace(err)
	}
	if err := m.db.Where("created_at < ?", deadline).Delete(&Boot{}).Error; err != nil {
		return errors.Trace(err)
	}
	m.log.Debugf("журнал очищен от записей старше %d дней", days)
	return nil
}
