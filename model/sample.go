package model

import "time"

// Sample один замер симулируемого датчика температуры
type Sample struct {
	// Температура в милли-градусах Цельсия (40000 = 40.000°C)
	TempMc int
	// Порог тревоги в милли-градусах на момент замера
	ThresholdMc int
	// Порядковый номер замера с момента создания устройства
	SampleCount uint64
	CreateAt    time.Time
}

// SampleEvent событие очередного замера, уходящее из семплера потребителям
type SampleEvent struct {
	Sample Sample
	// Температура замера достигла порога ThresholdMc
	Alert bool
}
