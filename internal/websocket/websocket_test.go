package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"vitals_go/internal/models"
)

type fakeProvider struct {
	resets int32
	fail   bool
}

func (f *fakeProvider) CurrentStatus() models.SensorStatus {
	return models.SensorStatus{Status: models.StatusOK, DeviceID: "dev-1"}
}

func (f *fakeProvider) History(metric string, since time.Time) ([]models.HistoryPoint, error) {
	if metric != "bpm" {
		return nil, errors.New("métrica desconhecida")
	}
	return []models.HistoryPoint{{Value: 72, Timestamp: time.Unix(10, 0)}}, nil
}

func (f *fakeProvider) Reset(ctx context.Context) error {
	if f.fail {
		return errors.New("falhou")
	}
	atomic.AddInt32(&f.resets, 1)
	return nil
}

func startHub(t *testing.T, p Provider) (*Hub, *websocket.Conn) {
	t.Helper()
	hub := NewHub()
	if p != nil {
		hub.SetProvider(p)
	}
	go hub.Run()

	srv := httptest.NewServer(NewHandler(hub))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		hub.Shutdown()
		srv.Close()
	})
	return hub, conn
}

// readType lê mensagens até encontrar o tipo pedido
func readType(t *testing.T, conn *websocket.Conn, kind string) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("aguardando %q: %v", kind, err)
		}
		var msg map[string]interface{}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("json inválido: %v", err)
		}
		if msg["type"] == kind {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestWelcomeAndStatusOnConnect(t *testing.T) {
	_, conn := startHub(t, &fakeProvider{})

	welcome := readType(t, conn, TypeWelcome)
	data, _ := welcome["data"].(map[string]interface{})
	if data["clientId"] == "" || data["clientId"] == nil {
		t.Fatalf("welcome sem clientId: %v", welcome)
	}

	status := readType(t, conn, TypeStatus)
	if status["status"] != models.StatusOK || status["deviceId"] != "dev-1" {
		t.Fatalf("status inesperado: %v", status)
	}
}

func TestPingPong(t *testing.T) {
	_, conn := startHub(t, nil)
	readType(t, conn, TypeWelcome)

	send(t, conn, `{"type":"ping","params":{"time":1234}}`)
	pong := readType(t, conn, TypePong)
	if pong["time"].(float64) != 1234 {
		t.Fatalf("pong.time = %v", pong["time"])
	}
}

func TestGetHistoryCommand(t *testing.T) {
	_, conn := startHub(t, &fakeProvider{})
	readType(t, conn, TypeWelcome)

	send(t, conn, `{"type":"get_history","params":{"metric":"bpm"}}`)
	msg := readType(t, conn, TypeHistory)
	history, _ := msg["history"].([]interface{})
	if msg["metric"] != "bpm" || len(history) != 1 {
		t.Fatalf("histórico inesperado: %v", msg)
	}

	send(t, conn, `{"type":"get_history","params":{"metric":"temp"}}`)
	errMsg := readType(t, conn, TypeError)
	if !strings.Contains(errMsg["error"].(string), "histórico") {
		t.Fatalf("erro inesperado: %v", errMsg)
	}
}

func TestResetCommand(t *testing.T) {
	p := &fakeProvider{}
	_, conn := startHub(t, p)
	readType(t, conn, TypeWelcome)

	send(t, conn, `{"type":"reset"}`)
	readType(t, conn, TypeResetDone)
	if n := atomic.LoadInt32(&p.resets); n != 1 {
		t.Fatalf("resets = %d, esperado 1", n)
	}
}

func TestInvalidAndUnknownCommands(t *testing.T) {
	_, conn := startHub(t, nil)
	readType(t, conn, TypeWelcome)

	send(t, conn, `{"type":"ping","extra":true}`)
	msg := readType(t, conn, TypeError)
	if code := msg["data"].(map[string]interface{})["code"]; code != "invalid_format" {
		t.Fatalf("code = %v", code)
	}

	send(t, conn, `{"type":"dance"}`)
	msg = readType(t, conn, TypeError)
	if code := msg["data"].(map[string]interface{})["code"]; code != "unknown_command" {
		t.Fatalf("code = %v", code)
	}

	send(t, conn, `{"type":"get_status"}`)
	msg = readType(t, conn, TypeError)
	if code := msg["data"].(map[string]interface{})["code"]; code != "unavailable" {
		t.Fatalf("code = %v", code)
	}
}

func TestBroadcastVitalsReachesClient(t *testing.T) {
	hub, conn := startHub(t, nil)
	readType(t, conn, TypeWelcome)

	bpm := 72
	hub.BroadcastVitals(models.VitalsResult{Seq: 7, HeartRateBPM: &bpm, IsWorn: true})
	msg := readType(t, conn, TypeVitals)
	vitals := msg["vitals"].(map[string]interface{})
	if vitals["seq"].(float64) != 7 || vitals["heartRateBpm"].(float64) != 72 {
		t.Fatalf("vitals inesperado: %v", vitals)
	}
}

func TestVitalsDiffer(t *testing.T) {
	a, b := 70, 71
	s1, s2 := 97.0, 97.2
	base := models.VitalsResult{HeartRateBPM: &a, SpO2Percent: &s1, IsWorn: true}

	same := base
	same.SpO2Percent = &s2
	if vitalsDiffer(&base, &same) {
		t.Fatal("variação de 0.2 em SpO2 não deveria contar")
	}

	bpmChanged := base
	bpmChanged.HeartRateBPM = &b
	if !vitalsDiffer(&base, &bpmChanged) {
		t.Fatal("mudança de BPM deveria contar")
	}

	unworn := base
	unworn.IsWorn = false
	if !vitalsDiffer(&base, &unworn) {
		t.Fatal("mudança de uso deveria contar")
	}

	lost := base
	lost.HeartRateBPM = nil
	if !vitalsDiffer(&base, &lost) {
		t.Fatal("perda de BPM deveria contar")
	}
}

func TestCheckOrigin(t *testing.T) {
	h := NewHandler(NewHub(), "http://painel.local")

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://painel.local")
	if !h.checkOrigin(req) {
		t.Fatal("origem permitida foi recusada")
	}

	req.Header.Set("Origin", "http://outro.local")
	if h.checkOrigin(req) {
		t.Fatal("origem desconhecida foi aceita")
	}
}
