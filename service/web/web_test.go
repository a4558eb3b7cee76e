package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"path"
	"strings"
	"testing"
	"time"

	samplerCtlMod "github.com/kirsrus/simtemp/controller/sampler"
	"github.com/kirsrus/simtemp/model"
	deviceSvcMod "github.com/kirsrus/simtemp/service/device"
	"github.com/kirsrus/simtemp/store"
	dbStoreMod "github.com/kirsrus/simtemp/store/db"
	"github.com/kirsrus/simtemp/store/state"

	"github.com/gorilla/websocket"
	"github.com/k0kubun/pp"
)

const testWebPort = 18472

// Подъём всего стека служб на тестовом порту
func newTestWeb(t *testing.T, ctx context.Context) (*Web, store.DeviceStore) {
	t.Helper()

	deviceStore, err := state.NewState(&state.ConfigState{})
	if err != nil {
		t.Fatal(err)
	}
	samplerCtl, err := samplerCtlMod.NewSampler(ctx, deviceStore, &samplerCtlMod.ConfigSampler{})
	if err != nil {
		t.Fatal(err)
	}
	deviceSvc, err := deviceSvcMod.NewDevice(deviceStore, &deviceSvcMod.ConfigDevice{})
	if err != nil {
		t.Fatal(err)
	}
	dbStore, err := dbStoreMod.NewDb(ctx, &dbStoreMod.ConfigDb{
		DbFile: path.Join(t.TempDir(), "simtemp.sqlite"),
	})
	if err != nil {
		t.Fatal(err)
	}

	webSvc, err := NewWeb(ctx, deviceSvc, deviceStore, samplerCtl, dbStore, &ConfigWeb{
		WebPort:    testWebPort,
		DeviceName: "simtemp0",
	})
	if err != nil {
		t.Fatal(err)
	}

	web, ok := webSvc.(*Web)
	if !ok {
		t.Fatal("NewWeb вернул неожиданный тип")
	}
	web.DeviceRead("/dev/simtemp0")
	web.DevicePoll("/dev/simtemp0/poll")
	web.Attributes("/sys/:attr")
	web.Journal("/journal")
	web.Feed("/feed")

	// Даём серверу время подняться
	time.Sleep(300 * time.Millisecond)

	return web, deviceStore
}

func httpGet(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}

func httpPost(t *testing.T, url, value string) (int, string) {
	t.Helper()
	resp, err := http.Post(url, "text/plain", strings.NewReader(value))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}

// TestWeb ручной прогон по всем хэндлерам поднятого сервера
func TestWeb(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	webSvc, deviceStore := newTestWeb(t, ctx)
	base := fmt.Sprintf("http://127.0.0.1:%d", testWebPort)

	t.Run("чтение атрибутов", func(t *testing.T) {
		code, body := httpGet(t, base+"/sys/temp_mc")
		if code != http.StatusOK || body != "40000\n" {
			t.Fatalf("GET /sys/temp_mc = %d %q", code, body)
		}
		code, body = httpGet(t, base+"/sys/enable")
		if code != http.StatusOK || body != "0\n" {
			t.Fatalf("GET /sys/enable = %d %q", code, body)
		}
		code, _ = httpGet(t, base+"/sys/unknown")
		if code != http.StatusNotFound {
			t.Fatalf("GET несуществующего атрибута = %d", code)
		}
	})

	t.Run("запись атрибутов", func(t *testing.T) {
		code, body := httpPost(t, base+"/sys/sampling_hz", "10")
		if code != http.StatusOK || body != "10\n" {
			t.Fatalf("POST /sys/sampling_hz 10 = %d %q", code, body)
		}

		// Отвергнутое значение не меняет атрибут
		code, _ = httpPost(t, base+"/sys/sampling_hz", "0")
		if code != http.StatusBadRequest {
			t.Fatalf("POST /sys/sampling_hz 0 = %d, а должен быть 400", code)
		}
		code, body = httpGet(t, base+"/sys/sampling_hz")
		if code != http.StatusOK || body != "10\n" {
			t.Fatalf("после отказа GET /sys/sampling_hz = %d %q", code, body)
		}

		code, body = httpPost(t, base+"/sys/threshold_mc", "42000")
		if code != http.StatusOK || body != "42000\n" {
			t.Fatalf("POST /sys/threshold_mc = %d %q", code, body)
		}

		// Показание только для чтения
		code, _ = httpPost(t, base+"/sys/temp_mc", "1")
		if code != http.StatusForbidden {
			t.Fatalf("POST /sys/temp_mc = %d, а должен быть 403", code)
		}
	})

	t.Run("журнал", func(t *testing.T) {
		// К этому моменту записаны два изменения атрибутов; отвергнутые
		// значения в журнал не попадают
		code, body := httpGet(t, base+"/journal")
		if code != http.StatusOK {
			t.Fatalf("GET /journal = %d %q", code, body)
		}
		var journal struct {
			Attributes []store.AttributeRecord `json:"attributes"`
			LastAlert  *store.AlertRecord      `json:"last_alert"`
		}
		if err := json.Unmarshal([]byte(body), &journal); err != nil {
			t.Fatal(err)
		}
		if len(journal.Attributes) != 2 {
			t.Fatalf("в журнале %d записей, а должно быть 2", len(journal.Attributes))
		}
		if journal.Attributes[0].Name != "sampling_hz" || journal.Attributes[0].Value != "10" {
			t.Errorf("первая запись %s=%s", journal.Attributes[0].Name, journal.Attributes[0].Value)
		}
		if journal.LastAlert != nil {
			t.Error("в журнале тревога, которой не было")
		}

		code, _ = httpGet(t, base+"/journal?hours=0")
		if code != http.StatusBadRequest {
			t.Fatalf("GET /journal с нулевым периодом = %d, а должен быть 400", code)
		}
	})

	t.Run("чтение показания", func(t *testing.T) {
		code, body := httpGet(t, base+"/dev/simtemp0")
		if code != http.StatusOK || body != "temp_mc=40000\n" {
			t.Fatalf("GET /dev/simtemp0 = %d %q", code, body)
		}
		code, _ = httpGet(t, base+"/dev/simtemp0?offset=14")
		if code != http.StatusNoContent {
			t.Fatalf("GET с конца данных = %d, а должен быть 204", code)
		}
		code, _ = httpGet(t, base+"/dev/simtemp0?count=5")
		if code != http.StatusBadRequest {
			t.Fatalf("GET с маленьким буфером = %d, а должен быть 400", code)
		}
	})

	t.Run("опрос готовности", func(t *testing.T) {
		code, body := httpGet(t, base+"/dev/simtemp0/poll")
		if code != http.StatusOK || strings.TrimSpace(body) != `{"ready":false}` {
			t.Fatalf("GET /dev/simtemp0/poll = %d %q", code, body)
		}

		deviceStore.SetEnabled(true)
		deviceStore.ApplySample(40100, time.Now())

		code, body = httpGet(t, base+"/dev/simtemp0/poll")
		if code != http.StatusOK || strings.TrimSpace(body) != `{"ready":true}` {
			t.Fatalf("после замера GET /dev/simtemp0/poll = %d %q", code, body)
		}
	})

	t.Run("канал событий", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(
			fmt.Sprintf("ws://127.0.0.1:%d/feed", testWebPort), nil)
		if err != nil {
			t.Fatal(err)
		}
		defer func() { _ = conn.Close() }()

		// Даём подписчику встать в пул
		time.Sleep(100 * time.Millisecond)

		webSvc.SampleChanged(model.SampleEvent{
			Sample: model.Sample{
				TempMc:      43000,
				ThresholdMc: 42000,
				SampleCount: 5,
				CreateAt:    time.Now(),
			},
			Alert: true,
		})

		if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
			t.Fatal(err)
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}

		var action model.FeedAction
		if err := json.Unmarshal(msg, &action); err != nil {
			t.Fatal(err)
		}
		if err := action.Validate(); err != nil {
			t.Fatal(err)
		}
		if action.Action != "newSample" || action.TempMc != 43000 || !action.Alert {
			t.Fatalf("пришло неожиданное событие: %+v", action)
		}
		_, _ = pp.Println(action)
	})
}
