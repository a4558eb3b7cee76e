package sampler

import (
	"math/rand"
	"testing"
)

func TestNextTempMc(t *testing.T) {

	t.Run("пределы сигнала", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		prev := BaselineMc
		for i := 0; i < 10000; i++ {
			next := NextTempMc(prev, rng)
			if next < BaselineMc-JitterMc || next > BaselineMc+JitterMc {
				t.Fatalf("замер %d вне пределов %d..%d", next, BaselineMc-JitterMc, BaselineMc+JitterMc)
			}
			prev = next
		}
	})

	t.Run("повторяемость при одном зерне", func(t *testing.T) {
		first := rand.New(rand.NewSource(42))
		second := rand.New(rand.NewSource(42))
		for i := 0; i < 100; i++ {
			a := NextTempMc(BaselineMc, first)
			b := NextTempMc(BaselineMc, second)
			if a != b {
				t.Fatalf("шаг %d: %d != %d при одинаковом зерне", i, a, b)
			}
		}
	})

	t.Run("сигнал центрируется заново", func(t *testing.T) {
		// Предыдущее значение не участвует в расчёте: с какой бы
		// температуры ни начинали, результат остаётся у базы
		rng := rand.New(rand.NewSource(7))
		next := NextTempMc(100000, rng)
		if next < BaselineMc-JitterMc || next > BaselineMc+JitterMc {
			t.Fatalf("замер %d не центрирован на базе %d", next, BaselineMc)
		}
	})
}
