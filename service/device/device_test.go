package device

import (
	"context"
	"testing"
	"time"

	"github.com/kirsrus/simtemp/store/state"

	"github.com/juju/errors"
)

func TestNewDevice(t *testing.T) {
	tests := []struct {
		name      string
		config    *ConfigDevice
		withStore bool
		wantErr   bool
	}{
		{
			name:      "корректный",
			config:    &ConfigDevice{},
			withStore: true,
			wantErr:   false,
		},
		{
			name:      "без конфигурации",
			config:    nil,
			withStore: true,
			wantErr:   true,
		},
		{
			name:      "без хранилища",
			config:    &ConfigDevice{},
			withStore: false,
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deviceStore, err := state.NewState(&state.ConfigState{})
			if err != nil {
				t.Fatal(err)
			}
			if !tt.withStore {
				deviceStore = nil
			}
			_, err = NewDevice(deviceStore, tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewDevice() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRead(t *testing.T) {
	// Показание по умолчанию "temp_mc=40000\n" длиной 14 байт
	tests := []struct {
		name    string
		offset  int
		count   int
		want    string
		wantErr bool
	}{
		{name: "чтение с начала", offset: 0, count: -1, want: "temp_mc=40000\n", wantErr: false},
		{name: "буфер точно по ответу", offset: 0, count: 14, want: "temp_mc=40000\n", wantErr: false},
		{name: "буфер с запасом", offset: 0, count: 64, want: "temp_mc=40000\n", wantErr: false},
		{name: "повторное чтение", offset: 14, count: -1, want: "", wantErr: false},
		{name: "чтение с середины", offset: 5, count: -1, want: "", wantErr: false},
		{name: "маленький буфер", offset: 0, count: 5, want: "", wantErr: true},
		{name: "отрицательная позиция", offset: -1, count: -1, want: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deviceStore, err := state.NewState(&state.ConfigState{})
			if err != nil {
				t.Fatal(err)
			}
			deviceSvc, err := NewDevice(deviceStore, &ConfigDevice{})
			if err != nil {
				t.Fatal(err)
			}

			out, err := deviceSvc.Read(tt.offset, tt.count)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Read() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.IsNotValid(err) {
					t.Errorf("ошибка %v не класса NotValid", err)
				}
				return
			}
			if string(out) != tt.want {
				t.Errorf("Read() = %q, а должно быть %q", string(out), tt.want)
			}
		})
	}
}

func TestPoll(t *testing.T) {
	deviceStore, err := state.NewState(&state.ConfigState{})
	if err != nil {
		t.Fatal(err)
	}
	deviceSvc, err := NewDevice(deviceStore, &ConfigDevice{})
	if err != nil {
		t.Fatal(err)
	}

	if deviceSvc.Poll() {
		t.Error("готовность до первого замера")
	}

	deviceStore.SetEnabled(true)
	deviceStore.ApplySample(40100, time.Now())

	if !deviceSvc.Poll() {
		t.Error("нет готовности после замера")
	}
	// Опрос снимает признак, второй подряд уже пустой
	if deviceSvc.Poll() {
		t.Error("признак готовности не снялся")
	}
}

func TestWaitReady(t *testing.T) {

	t.Run("пробуждение по замеру", func(t *testing.T) {
		deviceStore, err := state.NewState(&state.ConfigState{})
		if err != nil {
			t.Fatal(err)
		}
		deviceSvc, err := NewDevice(deviceStore, &ConfigDevice{})
		if err != nil {
			t.Fatal(err)
		}
		deviceStore.SetEnabled(true)

		go func() {
			time.Sleep(50 * time.Millisecond)
			deviceStore.ApplySample(40100, time.Now())
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := deviceSvc.WaitReady(ctx); err != nil {
			t.Fatalf("ожидание завершилось ошибкой: %v", err)
		}
	})

	t.Run("замер до начала ожидания", func(t *testing.T) {
		deviceStore, err := state.NewState(&state.ConfigState{})
		if err != nil {
			t.Fatal(err)
		}
		deviceSvc, err := NewDevice(deviceStore, &ConfigDevice{})
		if err != nil {
			t.Fatal(err)
		}
		deviceStore.SetEnabled(true)
		deviceStore.ApplySample(40100, time.Now())

		// Уже готовый замер не требует ожидания
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		if err := deviceSvc.WaitReady(ctx); err != nil {
			t.Fatalf("ожидание завершилось ошибкой: %v", err)
		}
	})

	t.Run("отмена контекста", func(t *testing.T) {
		deviceStore, err := state.NewState(&state.ConfigState{})
		if err != nil {
			t.Fatal(err)
		}
		deviceSvc, err := NewDevice(deviceStore, &ConfigDevice{})
		if err != nil {
			t.Fatal(err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		if err := deviceSvc.WaitReady(ctx); err == nil {
			t.Fatal("ожидание без замеров завершилось без ошибки")
		}
	})
}
