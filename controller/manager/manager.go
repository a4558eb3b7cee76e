package manager

import (
	"context"
	"io/ioutil"
	"strconv"
	"time"

	"github.com/kirsrus/simtemp/controller"
	"github.com/kirsrus/simtemp/model"
	"github.com/kirsrus/simtemp/service"
	"github.com/kirsrus/simtemp/store"

	"github.com/juju/errors"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// Повторная тревога по тому же порогу не журналируется чаще этого
	// интервала, пока температура держится выше порога
	alertMuteInterval = 5 * time.Minute
	cleanBasePeriod   = time.Hour * 24 * 30
	cleanBaseInterval = time.Minute * 30
)

// ConfigManager конфигурация Manager
type ConfigManager struct {
	Log *logrus.Logger

	SamplerCtl controller.SamplerCtl

	WebSvc  service.WebSvc
	DbStore store.JournalStore

	AlertMuteInterval time.Duration
	CleanBasePeriod   time.Duration
	CleanBaseInterval time.Duration
}

// Manager основной менеджер работы со всеми сервисами. Инициируется через
// NewManager: принимает события замеров от семплера, рассылает их в
// WebSocket канал и ведёт журнал тревог с периодической очисткой
type Manager struct {
	ctx context.Context
	log *logrus.Entry

	samplerCtl controller.SamplerCtl

	webSvc  service.WebSvc
	dbStore store.JournalStore

	// Кэш недавних тревог для подавления повторов
	alertCache *cache.Cache

	alertMuteInterval time.Duration
	cleanBasePeriod   time.Duration
	cleanBaseInterval time.Duration
}

// NewManager конструктор Manager
func NewManager(ctx context.Context, config *ConfigManager) (*Manager, error) {
	if config == nil {
		return nil, errors.New("не передана конфигурация")
	}
	if config.Log == nil {
		config.Log = logrus.New()
		config.Log.Out = ioutil.Discard
	}
	if config.SamplerCtl == nil {
		return nil, errors.New("не передан контроллер семплера")
	}
	if config.WebSvc == nil {
		return nil, errors.New("не передан сервис WEB")
	}
	if config.DbStore == nil {
		return nil, errors.New("не передан сервис базы данных")
	}

	manager := Manager{
		ctx: ctx,
		log: config.Log.WithFields(map[string]interface{}{
			"module": "manager",
			"scope":  "controller",
		}),
		samplerCtl: config.SamplerCtl,

		webSvc:  config.WebSvc,
		dbStore: config.DbStore,

		alertMuteInterval: alertMuteInterval,
		cleanBasePeriod:   cleanBasePeriod,
		cleanBaseInterval: cleanBaseInterval,
	}
	if config.AlertMuteInterval != 0 {
		manager.alertMuteInterval = config.AlertMuteInterval
	}
	if config.CleanBasePeriod != 0 {
		manager.cleanBasePeriod = config.CleanBasePeriod
	}
	if config.CleanBaseInterval != 0 {
		manager.cleanBaseInterval = config.CleanBaseInterval
	}
	manager.alertCache = cache.New(manager.alertMuteInterval, 2*manager.alertMuteInterval)

	manager.configToLog()

	return &manager, nil
}

// Вывести значения конфигурации в лог
func (m Manager) configToLog() {
	m.log.Debugf("alertMuteInterval: %s", m.alertMuteInterval)
	m.log.Debugf("cleanBasePeriod: %s", m.cleanBasePeriod)
	m.log.Debugf("cleanBaseInterval: %s", m.cleanBaseInterval)
}

// Serve начало процесса обработки поступающих данных
func (m Manager) Serve() error {
	done := make(chan error)

	g := new(errgroup.Group)

	// Запуск разбора событий замеров от семплера
	g.Go(func() error {
		for {
			event, err := m.samplerCtl.EmmitSample()
			if err != nil {
				return err
			}
			m.webSvc.SampleChanged(*event)
			if event.Alert {
				m.alertWorker(*event)
			}
		}
	})

	// Запуск хаускипера для очистки журнала от старых записей
	g.Go(func() error {
		days := int(m.cleanBasePeriod.Hours() / 24)
		for {
			err := m.dbStore.Clean(days)
			if err != nil {
				return errors.Trace(err)
			}
			select {
			case <-m.ctx.Done():
				return nil
			case <-time.After(m.cleanBaseInterval):
			}
		}
	})

	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		return errors.Trace(err)
	case <-m.ctx.Done():
		return nil
	}
}

// Обработчик замера с тревогой. Запись в журнал — секция некритичная,
// ошибка уходит только в лог
func (m Manager) alertWorker(event model.SampleEvent) {
	key := strconv.Itoa(event.Sample.ThresholdMc)
	if err := m.alertCache.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
		// Тревога по этому порогу уже журналировалась недавно
		return
	}

	if err := m.dbStore.SetAlert(event.Sample); err != nil {
		m.log.Error(err)
	}
}
