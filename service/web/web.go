package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kirsrus/simtemp/controller"
	"github.com/kirsrus/simtemp/model"
	"github.com/kirsrus/simtemp/pkg/validator"
	"github.com/kirsrus/simtemp/service"
	"github.com/kirsrus/simtemp/store"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/juju/errors"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/sirupsen/logrus"
)

const (
	waitRestartStartServer = 10 * time.Second
	webPort                = 8080
	// Величина канала одного подписчика WebSocket
	feedCapacity = 20
	// Максимальное время блокирующего опроса готовности
	pollWaitTimeout = 30 * time.Second
	// Глубина выдачи журнала по умолчанию
	journalPeriod = 24 * time.Hour
)

// ConfigWeb конфигурация структуры Web
type ConfigWeb struct {
	Log *logrus.Logger

	WebPort uint

	// Имя узла устройства для сообщений об ошибках и лога
	DeviceName string `conform:"trim" validate:"required"`

	// Максимальное время блокирующего опроса готовности
	PollWaitTimeout time.Duration
}

// Web служба WEB-интерфейса устройства. Инициализируется через NewWeb.
// Обслуживает чтение показания, опрос готовности, атрибуты управления и
// WebSocket канал с событиями замеров
type Web struct {
	ctx       context.Context
	log       *logrus.Entry
	validator *validator.Validator
	e         *echo.Echo
	upgrader  websocket.Upgrader

	deviceSvc   service.DeviceSvc
	deviceStore store.DeviceStore
	samplerCtl  controller.SamplerCtl
	dbStore     store.JournalStore

	// Пул подписчиков WebSocket канала (ключ — uuid подписчика)
	subscribers *sync.Map

	webPort         uint
	deviceName      string
	pollWaitTimeout time.Duration
}

// NewWeb конструктор структуры Web
func NewWeb(ctx context.Context, deviceSvc service.DeviceSvc, deviceStore store.DeviceStore,
	samplerCtl controller.SamplerCtl, dbStore store.JournalStore, config *ConfigWeb) (service.WebSvc, error) {
	if config == nil {
		return nil, errors.New("не установлена конфигурация")
	}
	if config.Log == nil {
		config.Log = logrus.New()
		config.Log.Out = ioutil.Discard
	}
	if err := validator.Get().ValidateWithConform(config); err != nil {
		return nil, errors.Annotate(err, "ошибка в конфигурации")
	}
	if deviceSvc == nil {
		return nil, errors.New("не передан сервис устройства")
	}
	if deviceStore == nil {
		return nil, errors.New("не передано хранилище состояния")
	}
	if samplerCtl == nil {
		return nil, errors.New("не передан контроллер семплера")
	}
	if dbStore == nil {
		return nil, errors.New("не передан журнал устройства")
	}

	web := Web{
		ctx: ctx,
		log: config.Log.WithFields(map[string]interface{}{
			"module": "web",
			"scope":  "service",
		}),
		validator: validator.Get(),
		e:         echo.New(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},

		deviceSvc:   deviceSvc,
		deviceStore: deviceStore,
		samplerCtl:  samplerCtl,
		dbStore:     dbStore,

		subscribers: new(sync.Map),

		webPort:         webPort,
		deviceName:      config.DeviceName,
		pollWaitTimeout: pollWaitTimeout,
	}
	if config.WebPort != 0 {
		web.webPort = config.WebPort
	}
	if config.PollWaitTimeout != 0 {
		web.pollWaitTimeout = config.PollWaitTimeout
	}

	// Настройка WEB-сервера
	web.e.HideBanner = true
	web.e.HidePort = true
	web.e.Use(middleware.Recover())
	web.e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	go web.serve()

	return &web, nil
}

func (m *Web) serve() {
	for {
		m.log.Infof("старт HTTP-сервера на порту :%d", m.webPort)
		err := m.e.Start(fmt.Sprintf(":%d", m.webPort))
		m.log.Errorf("сервер неожиданно завершил работу: %s", err.Error())
		time.Sleep(waitRestartStartServer)
	}
}

// DeviceRead хэндлер чтения показания устройства. Позиция чтения ожидается
// в параметре offset (по умолчанию 0), размер буфера читателя — в
// параметре count (отсутствие параметра — буфер не ограничен)
func (m *Web) DeviceRead(path string) {
	m.e.GET(path, func(c echo.Context) error {
		offset := 0
		if v := c.QueryParam("offset"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"message": fmt.Sprintf("некорректная позиция чтения: %s", v)})
			}
			offset = parsed
		}
		count := -1
		if v := c.QueryParam("count"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"message": fmt.Sprintf("некорректный размер буфера: %s", v)})
			}
			count = parsed
		}

		out, err := m.deviceSvc.Read(offset, count)
		if err != nil {
			if errors.IsNotValid(err) {
				return c.JSON(http.StatusBadRequest, map[string]string{"message": err.Error()})
			}
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": err.Error()})
		}
		if len(out) == 0 {
			// Конец данных: показание уже было прочитано с нулевой позиции
			return c.NoContent(http.StatusNoContent)
		}
		return c.Blob(http.StatusOK, "text/plain; charset=utf-8", out)
	})
}

// DevicePoll хэндлер опроса готовности нового замера. С параметром wait=1
// запрос блокируется до очередного замера (но не дольше pollWaitTimeout)
func (m *Web) DevicePoll(path string) {
	m.e.GET(path, func(c echo.Context) error {
		wait := c.QueryParam("wait")
		if wait != "" && wait != "0" {
			ctx, cancel := context.WithTimeout(m.ctx, m.pollWaitTimeout)
			defer cancel()
			err := m.deviceSvc.WaitReady(ctx)
			return c.JSON(http.StatusOK, map[string]bool{"ready": err == nil})
		}
		return c.JSON(http.StatusOK, map[string]bool{"ready": m.deviceSvc.Poll()})
	})
}

// Attributes хэндлер атрибутов управления устройством. Имя атрибута
// ожидается в параметре :attr. Чтение возвращает значение в том же
// формате, что и sysfs: число и перевод строки
func (m *Web) Attributes(path string) {
	m.e.GET(path, func(c echo.Context) error {
		attr := c.Param("attr")
		if !model.AttrIsset(attr) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": fmt.Sprintf("у устройства %s нет атрибута %s", m.deviceName, attr)})
		}
		return c.String(http.StatusOK, m.attributeShow(attr))
	})

	m.e.POST(path, func(c echo.Context) error {
		attr := c.Param("attr")
		if !model.AttrIsset(attr) {
			return c.JSON(http.StatusNotFound, map[string]string{"message": fmt.Sprintf("у устройства %s нет атрибута %s", m.deviceName, attr)})
		}
		if model.AttrIsReadOnly(attr) {
			return c.JSON(http.StatusForbidden, map[string]string{"message": fmt.Sprintf("атрибут %s только для чтения", attr)})
		}

		body, err := ioutil.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "не удалось прочитать значение атрибута"})
		}
		value := strings.TrimSpace(string(body))

		if err := m.attributeStore(attr, value); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": err.Error()})
		}

		// Записываем изменение в журнал. Секция некритичная, ошибка уходит
		// только в лог
		if err := m.dbStore.SetAttribute(attr, value); err != nil {
			m.log.Error(err)
		}

		return c.String(http.StatusOK, m.attributeShow(attr))
	})
}

// Текущее значение атрибута в формате sysfs
func (m *Web) attributeShow(attr string) string {
	switch attr {
	case model.AttrEnable:
		enabled := 0
		if m.samplerCtl.Enabled() {
			enabled = 1
		}
		return fmt.Sprintf("%d\n", enabled)
	case model.AttrSamplingHz:
		return fmt.Sprintf("%d\n", m.deviceStore.SamplingHz())
	case model.AttrThresholdMc:
		return fmt.Sprintf("%d\n", m.deviceStore.ThresholdMc())
	case model.AttrTempMc:
		return fmt.Sprintf("%d\n", m.deviceStore.TempMc())
	}
	return ""
}

// Разбор и применение нового значения атрибута. Проверка выполняется до
// изменения состояния: при ошибке устройство остаётся как было
func (m *Web) attributeStore(attr, value string) error {
	switch attr {
	case model.AttrEnable:
		v, err := strconv.ParseUint(value, 0, 32)
		if err != nil {
			return errors.NotValidf("значение атрибута enable %q", value)
		}
		if v != 0 {
			m.samplerCtl.Enable()
		} else {
			m.samplerCtl.Disable()
		}
		return nil
	case model.AttrSamplingHz:
		v, err := strconv.ParseUint(value, 0, 32)
		if err != nil {
			return errors.NotValidf("значение атрибута sampling_hz %q", value)
		}
		return errors.Trace(m.deviceStore.SetSamplingHz(uint(v)))
	case model.AttrThresholdMc:
		v, err := strconv.ParseInt(value, 0, 32)
		if err != nil {
			return errors.NotValidf("значение атрибута threshold_mc %q", value)
		}
		m.deviceStore.SetThresholdMc(int(v))
		return nil
	}
	return errors.NotValidf("атрибут %s", attr)
}

// Journal хэндлер журнала устройства: изменения атрибутов за период
// (параметр hours, по умолчанию сутки) и последняя записанная тревога
func (m *Web) Journal(path string) {
	m.e.GET(path, func(c echo.Context) error {
		period := journalPeriod
		if v := c.QueryParam("hours"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed <= 0 {
				return c.JSON(http.StatusBadRequest, map[string]string{"message": fmt.Sprintf("некорректный период журнала: %s", v)})
			}
			period = time.Duration(parsed) * time.Hour
		}

		attributes, err := m.dbStore.Attributes(period)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": err.Error()})
		}
		res := map[string]interface{}{"attributes": attributes}

		alert, err := m.dbStore.LastAlert()
		switch {
		case err == nil:
			res["last_alert"] = alert
		case m.dbStore.IsNotFound(err):
			// Тревог ещё не было
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": err.Error()})
		}

		return c.JSON(http.StatusOK, res)
	})
}

// Feed хэндлер WebSocket канала с событиями замеров. Каждому подписчику
// отводится свой канал в пуле; события рассылает SampleChanged
func (m *Web) Feed(path string) {
	m.e.GET(path, func(c echo.Context) error {
		conn, err := m.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return errors.Trace(err)
		}
		defer func() { _ = conn.Close() }()

		id := uuid.New().String()
		feed := make(chan model.FeedAction, feedCapacity)
		m.subscribers.Store(id, feed)
		defer m.subscribers.Delete(id)
		m.log.Infof("подписчик %s подключён к каналу событий", id)

		// Чтение нужно только чтобы заметить закрытие соединения
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-m.ctx.Done():
				return nil
			case <-done:
				m.log.Infof("подписчик %s отключён от канала событий", id)
				return nil
			case action := <-feed:
				msg, err := json.Marshal(action)
				if err != nil {
					m.log.Errorf("ошибка кодирования события в JSON: %v", err)
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					m.log.Warnf("ошибка записи в WebSocket: %v", err)
					return nil
				}
			}
		}
	})
}

// SampleChanged отсылка события очередного замера подписчикам канала
func (m *Web) SampleChanged(event model.SampleEvent) {
	action := model.FeedAction{
		Action:      "newSample",
		Timestamp:   event.Sample.CreateAt.Format(model.FeedTimeLayout),
		TempMc:      event.Sample.TempMc,
		SampleCount: event.Sample.SampleCount,
		Alert:       event.Alert,
	}

	m.subscribers.Range(func(key, value interface{}) bool {
		feed, ok := value.(chan model.FeedAction)
		if !ok {
			m.log.Errorf("в пуле подписчиков неожиданный тип данных: %T", value)
			return true
		}
		select {
		case feed <- action:
		default:
			m.log.Warnf("канал подписчика %s переполнен", key)
		}
		return true
	})
}
