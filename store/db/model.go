package db

import (
	"time"

	"github.com/kirsrus/simtemp/store"
)

type (
	// GormModelUnscoped модель эквивалент gorm.Model без сохранения удалений
	GormModelUnscoped struct {
		ID        int `gorm:"primaryKey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Boot запись о загрузке устройства с действующей конфигурацией
	Boot struct {
		GormModelUnscoped
		Device      string
		SamplingHz  uint
		ThresholdMc int
	}
)

// TableName имя таблицы
func (Boot) TableName() string {
	return "boots"
}

type (
	// Attribute запись об изменении атрибута управления
	Attribute struct {
		GormModelUnscoped
		Name  string
		Value string
	}
)

// TableName имя таблицы
func (Attribute) TableName() string {
	return "attributes"
}

// ToRecord маппинг данных в структуру store.AttributeRecord
func (m Attribute) ToRecord() store.AttributeRecord {
	createdAt := m.CreatedAt
	return store.AttributeRecord{
		ID:        m.ID,
		CreatedAt: &createdAt,
		Name:      m.Name,
		Value:     m.Value,
	}
}

type (
	// Alert запись о тревоге по достижению порога
	Alert struct {
		GormModelUnscoped
		TempMc      int
		ThresholdMc int
		SampleCount uint64
	}
)

// TableName имя таблицы
func (Alert) TableName() string {
	return "alerts"
}

// ToRecord маппинг данных в структуру store.AlertRecord
func (m Alert) ToRecord() store.AlertRecord {
	createdAt := m.CreatedAt
	return store.AlertRecord{
		ID:          m.ID,
		CreatedAt:   &createdAt,
		TempMc:      m.TempMc,
		ThresholdMc: m.ThresholdMc,
		SampleCount: m.SampleCount,
	}
}
