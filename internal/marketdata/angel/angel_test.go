package angel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tripleconfirm/internal/model"
)

func TestInterval(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"1h", "ONE_HOUR", false},
		{"15m", "FIFTEEN_MINUTE", false},
		{"ONE_DAY", "ONE_DAY", false},
		{"four_hour", "", true},
	}
	for _, tt := range tests {
		got, err := Interval(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("Interval(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestParseSymbol(t *testing.T) {
	if ex, tok := ParseSymbol("nfo:43650"); ex != "NFO" || tok != "43650" {
		t.Errorf("got %s %s", ex, tok)
	}
	if ex, tok := ParseSymbol("3045"); ex != "NSE" || tok != "3045" {
		t.Errorf("got %s %s", ex, tok)
	}
}

func TestFetch(t *testing.T) {
	logins := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/auth/angelbroking/user/v1/loginByPassword", func(w http.ResponseWriter, r *http.Request) {
		logins++
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if len(body["totp"]) != 6 {
			t.Errorf("totp = %q", body["totp"])
		}
		w.Write([]byte(`{"status":true,"data":{"jwtToken":"JWT","refreshToken":"RT","feedToken":"FT"}}`))
	})
	mux.HandleFunc("/rest/secure/angelbroking/historical/v1/getCandleData", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["exchange"] != "NSE" || body["symboltoken"] != "3045" {
			t.Errorf("body = %v", body)
		}
		w.Write([]byte(`{"status":true,"data":[
			["2024-03-04T09:15:00+05:30",100,105,99,104,1200],
			["2024-03-04T10:15:00+05:30",104,106,103,105.5,900],
			["2024-03-04T11:15:00+05:30",105.5,107,105,106,300]
		]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(Config{APIKey: "K", ClientCode: "C", Password: "P", TOTPSecret: "JBSWY3DPEHPK3PXP", RootURL: srv.URL})
	ist := time.FixedZone("IST", 5*3600+1800)
	s.now = func() time.Time { return time.Date(2024, 3, 4, 11, 40, 0, 0, ist) }

	for i := 0; i < 2; i++ {
		got, err := s.Fetch(context.Background(), model.FetchRequest{Symbol: "3045", Interval: "1h", Limit: 10})
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d candles, want 2 closed", len(got))
		}
		if got[1].Close != 105.5 || got[0].TS.Location() != time.UTC {
			t.Errorf("candles = %+v", got)
		}
	}
	if logins != 1 {
		t.Errorf("logins = %d, want the session reused", logins)
	}
}
