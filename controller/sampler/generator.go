package sampler

import (
	"math/rand"
)

const (
	// Базовая температура, вокруг которой строится сигнал (40.000°C)
	BaselineMc = 40000
	// Максимальное отклонение от базовой температуры за один замер
	JitterMc = 500
)

// NextTempMc вычисляет следующую температуру: базовое значение плюс
// равномерный шум в пределах ±JitterMc милли-градусов. Предыдущее значение
// prevMc в расчёте не участвует: каждый замер центрируется на базе заново,
// шум не накапливается
func NextTempMc(prevMc int, rng *rand.Rand) int {
	delta := int(rng.Uint32()%(2*JitterMc+1)) - JitterMc
	return BaselineMc + delta
}
