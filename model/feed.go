package model

import (
	"github.com/juju/errors"
)

// Формат времени в событии FeedAction
const FeedTimeLayout = "2006-01-02T15:04:05.000000"

// FeedAction событие в WebSocket канале устройства
type FeedAction struct {
	// Тип события:
	//    newSample - доступен новый замер
	Action string `json:"action"`
	// Дата события в формате "2020-11-27T12:37:54.838079"
	Timestamp string `json:"timestamp"`
	// Температура замера в милли-градусах
	TempMc int `json:"temp_mc"`
	// Порядковый номер замера
	SampleCount uint64 `json:"sample_count"`
	// Температура замера достигла порога threshold_mc
	Alert bool `json:"alert"`
}

// Validate валидация
func (m FeedAction) Validate() error {
	if m.Action == "" {
		return errors.New("не задан параметр Action")
	}
	if m.Timestamp == "" {
		return errors.New("не задан параметр Timestamp")
	}
	if m.SampleCount == 0 {
		return errors.New("не задан параметр SampleCount")
	}
	return nil
}
