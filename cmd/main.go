package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	managerCtlMod "github.com/kirsrus/simtemp/controller/manager"
	samplerCtlMod "github.com/kirsrus/simtemp/controller/sampler"
	"github.com/kirsrus/simtemp/pkg/config"
	"github.com/kirsrus/simtemp/pkg/logger"
	"github.com/kirsrus/simtemp/pkg/tool"
	deviceSvcMod "github.com/kirsrus/simtemp/service/device"
	webSvcMod "github.com/kirsrus/simtemp/service/web"
	dbStoreMod "github.com/kirsrus/simtemp/store/db"
	stateStoreMod "github.com/kirsrus/simtemp/store/state"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

var (
	cfg *config.Config
	log *logrus.Logger
)

func init() {
	cfg = config.Get()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.WarnLevel
	}
	log = logger.GetWithConfig(logger.Config{
		File:    cfg.Log.Filename,
		Level:   level,
		Console: cfg.Log.Console,
	})
}

func main() {

	err := run()
	if err != nil {
		fmt.Printf("ОШИБКА: в процессе работы произошла ошибка: %v\n", err)
		fmt.Printf("Для подробностей смотри лог: %s/%s\n", cfg.Log.Path, cfg.Log.Filename)
		log.Fatal(errors.ErrorStack(err))
	}
}

func run() error {
	// Отлавливаем сигнал завершения работы программы
	chanInterrupt := make(chan os.Signal, 1)
	signal.Notify(chanInterrupt, os.Interrupt)

	done := make(chan error)
	ctx, cancel := context.WithCancel(context.Background())
	_ = cancel

	// region Настройка БД журнала

	dbStore, err := dbStoreMod.NewDb(ctx, &dbStoreMod.ConfigDb{
		Log:    log,
		DbFile: cfg.Db.Filename,
	})
	if err != nil {
		return errors.Trace(err)
	}

	// endregion
	// region Начальная конфигурация устройства

	// Разбор описаний устройств: первый узел с подходящей строкой
	// совместимости переопределяет значения по умолчанию. Ключи узла
	// передаются дальше указателями: явный ноль в описании отличим от
	// отсутствующего ключа
	var samplingHz uint
	var thresholdMc *int
	var rngSeed *int64
	for _, node := range cfg.Sensor.Nodes {
		if node.Compatible != config.CompatibleSimtemp {
			continue
		}
		if node.SamplingHz != nil {
			samplingHz = *node.SamplingHz
		}
		thresholdMc = node.ThresholdMc
		rngSeed = node.RngSeed
		break // Первое совпадение
	}

	deviceStore, err := stateStoreMod.NewState(&stateStoreMod.ConfigState{
		Log:         log,
		SamplingHz:  samplingHz,
		ThresholdMc: thresholdMc,
	})
	if err != nil {
		return errors.Trace(err)
	}

	// endregion
	// region Семплер и символьный интерфейс устройства

	samplerCtl, err := samplerCtlMod.NewSampler(ctx, deviceStore, &samplerCtlMod.ConfigSampler{
		Log:     log,
		RngSeed: rngSeed,
	})
	if err != nil {
		return errors.Trace(err)
	}

	deviceSvc, err := deviceSvcMod.NewDevice(deviceStore, &deviceSvcMod.ConfigDevice{
		Log: log,
	})
	if err != nil {
		return errors.Trace(err)
	}

	// endregion
	// region Контроллер WEB

	webSvc, err := webSvcMod.NewWeb(ctx, deviceSvc, deviceStore, samplerCtl, dbStore, &webSvcMod.ConfigWeb{
		Log:             log,
		WebPort:         cfg.Http.Port,
		DeviceName:      cfg.Sensor.Name,
		PollWaitTimeout: time.Duration(cfg.Http.PollWaitTimeout) * time.Second,
	})
	if err != nil {
		return errors.Trace(err)
	}

	webSvc.DeviceRead("/dev/" + cfg.Sensor.Name)
	webSvc.DevicePoll("/dev/" + cfg.Sensor.Name + "/poll")
	webSvc.Attributes("/sys/:attr")
	webSvc.Journal("/journal")
	webSvc.Feed("/feed")

	// endregion
	// region Менеджер управления всеми

	managerCtl, err := managerCtlMod.NewManager(ctx, &managerCtlMod.ConfigManager{
		Log:               log,
		SamplerCtl:        samplerCtl,
		WebSvc:            webSvc,
		DbStore:           dbStore,
		CleanBasePeriod:   time.Hour * 24 * time.Duration(cfg.Db.ArchiveDays),
		CleanBaseInterval: time.Minute * time.Duration(cfg.Db.CleanArchiveInterval),
	})
	if err != nil {
		return errors.Trace(err)
	}

	go func() {
		err := managerCtl.Serve()
		if err != nil && err.Error() != context.Canceled.Error() {
			done <- errors.Trace(err)
		}
		done <- nil
	}()

	// endregion

	// Фиксируем загрузку в журнале и логе
	if err := dbStore.SetBoot(cfg.Sensor.Name, deviceStore.SamplingHz(), deviceStore.ThresholdMc()); err != nil {
		log.Error(err)
	}
	log.Infof("устройство %s загружено: sampling_hz=%d threshold_mc=%d (порог %s°C)",
		cfg.Sensor.Name, deviceStore.SamplingHz(), deviceStore.ThresholdMc(),
		tool.MilliDegString(deviceStore.ThresholdMc()))

	// Процесс завершения работы
	select {
	case err := <-done:
		return errors.Trace(err)
	case <-chanInterrupt:
		log.Info("получена по каналу interrupt команда на завершение работы программы")
		cancel()
		// Синхронно останавливаем семплер, чтобы не осталось
		// незавершённого замера
		samplerCtl.Disable()
		time.Sleep(time.Second)
		return nil
	}
}
