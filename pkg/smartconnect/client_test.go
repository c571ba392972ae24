package smartconnect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(routes["api.login"], func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if r.Header.Get("X-PrivateKey") != "KEY" {
			t.Errorf("missing api key header")
		}
		if body["totp"] != "123456" {
			w.Write([]byte(`{"status":false,"message":"Invalid totp","errorcode":"AB1050","data":null}`))
			return
		}
		w.Write([]byte(`{"status":true,"message":"SUCCESS","data":{"jwtToken":"JWT","refreshToken":"RT","feedToken":"FT"}}`))
	})
	mux.HandleFunc(routes["api.candle.data"], func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer JWT" {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error_type":"TokenException","message":"Invalid Token"}`))
			return
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["fromdate"] != "2024-03-04 09:15" || body["interval"] != "ONE_HOUR" {
			t.Errorf("request body = %v", body)
		}
		w.Write([]byte(`{"status":true,"data":[
			["2024-03-04T09:15:00+05:30",100,105,99,104,1200],
			["2024-03-04T10:15:00+05:30",104,106,103,105.5,900]
		]}`))
	})
	return httptest.NewServer(mux)
}

func TestGenerateSessionAndCandles(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	ctx := context.Background()

	sc := NewSmartConnect(Config{APIKey: "KEY", RootURL: srv.URL, ClientLocalIP: "10.0.0.1", ClientMAC: "aa:bb"})

	if _, err := sc.GenerateSession(ctx, "C1", "pw", "000000"); err == nil || !strings.Contains(err.Error(), "Invalid totp") {
		t.Fatalf("bad totp: err = %v", err)
	}
	if sc.LoggedIn() {
		t.Fatal("failed login must not store a token")
	}

	s, err := sc.GenerateSession(ctx, "C1", "pw", "123456")
	if err != nil {
		t.Fatalf("GenerateSession: %v", err)
	}
	if s.JWTToken != "JWT" || sc.GetFeedToken() != "FT" || sc.GetUserID() != "C1" {
		t.Errorf("session = %+v", s)
	}

	ist := time.FixedZone("IST", 5*3600+1800)
	rows, err := sc.GetCandleData(ctx, CandleRequest{
		Exchange: "NSE", SymbolToken: "3045", Interval: "ONE_HOUR",
		From: time.Date(2024, 3, 4, 9, 15, 0, 0, ist),
		To:   time.Date(2024, 3, 4, 15, 30, 0, 0, ist),
	})
	if err != nil {
		t.Fatalf("GetCandleData: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if want := time.Date(2024, 3, 4, 3, 45, 0, 0, time.UTC); !rows[0].TS.Equal(want) {
		t.Errorf("ts = %v, want %v", rows[0].TS, want)
	}
	if rows[1].Close != 105.5 || rows[0].Volume != 1200 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestGetCandleData_TokenError(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	sc := NewSmartConnect(Config{APIKey: "KEY", RootURL: srv.URL, ClientLocalIP: "10.0.0.1", ClientMAC: "aa:bb"})
	_, err := sc.GetCandleData(context.Background(), CandleRequest{Interval: "ONE_HOUR"})
	if err == nil || !strings.Contains(err.Error(), "TokenException") {
		t.Errorf("err = %v, want TokenException", err)
	}
}
