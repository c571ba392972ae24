// Package smartconnect is a minimal client for the Angel One SmartAPI: password+TOTP
// login and historical candle download.
//
// Usage example:
//
//	sc := smartconnect.NewSmartConnect(smartconnect.Config{APIKey: "your_api_key"})
//	if _, err := sc.GenerateSession(ctx, "CLIENTID", "PASSWORD", "TOTP"); err != nil { log.Fatal(err) }
//	rows, err := sc.GetCandleData(ctx, smartconnect.CandleRequest{
//	    Exchange: "NSE", SymbolToken: "3045", Interval: "ONE_HOUR",
//	    From: time.Now().AddDate(0, 0, -30), To: time.Now(),
//	})
package smartconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ---- Config & client ----

type Config struct {
	APIKey string

	RootURL        string        // default: https://apiconnect.angelone.in
	Debug          bool          // log request/response bodies at debug level
	Timeout        time.Duration // default: 7s
	UserType       string        // default: USER
	SourceID       string        // default: WEB
	ClientPublicIP string        // default 106.193.147.98
	ClientLocalIP  string        // default resolved, else 127.0.0.1
	ClientMAC      string        // default from interface MAC
}

type SmartConnect struct {
	apiKey       string
	accessToken  string
	refreshToken string
	feedToken    string
	userID       string

	rootURL string
	debug   bool

	httpClient *http.Client

	userType string
	sourceID string

	clientPublicIP string
	clientLocalIP  string
	clientMAC      string
}

const defaultRoot = "https://apiconnect.angelone.in"

// CandleTimeLayout is the date format SmartAPI expects for candle ranges (IST).
const CandleTimeLayout = "2006-01-02 15:04"

var routes = map[string]string{
	"api.login":       "/rest/auth/angelbroking/user/v1/loginByPassword",
	"api.logout":      "/rest/secure/angelbroking/user/v1/logout",
	"api.token":       "/rest/auth/angelbroking/jwt/v1/generateTokens",
	"api.candle.data": "/rest/secure/angelbroking/historical/v1/getCandleData",
}

// GetLocalIP finds the first non-loopback IPv4 address.
func GetLocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}

	for _, address := range addrs {
		if ipNet, ok := address.(*net.IPNet); ok && !ipNet.IP.IsLoopback() {
			if ipNet.IP.To4() != nil {
				return ipNet.IP.String(), nil
			}
		}
	}
	return "", fmt.Errorf("no local IP found")
}

// NewSmartConnect initializes the client. It performs no network calls.
func NewSmartConnect(cfg Config) *SmartConnect {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 7 * time.Second
	}
	if cfg.UserType == "" {
		cfg.UserType = "USER"
	}
	if cfg.SourceID == "" {
		cfg.SourceID = "WEB"
	}
	if cfg.ClientLocalIP == "" {
		localIP, err := GetLocalIP()
		if err != nil {
			slog.Debug("smartconnect: local ip", "error", err)
		}
		cfg.ClientLocalIP = firstNonEmpty(localIP, "127.0.0.1")
	}
	cfg.ClientPublicIP = firstNonEmpty(cfg.ClientPublicIP, "106.193.147.98")
	if cfg.ClientMAC == "" {
		cfg.ClientMAC = getMACFallback()
	}

	return &SmartConnect{
		apiKey:         cfg.APIKey,
		rootURL:        strings.TrimRight(cfg.RootURL, "/"),
		debug:          cfg.Debug,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		userType:       cfg.UserType,
		sourceID:       cfg.SourceID,
		clientPublicIP: cfg.ClientPublicIP,
		clientLocalIP:  cfg.ClientLocalIP,
		clientMAC:      cfg.ClientMAC,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func getMACFallback() string {
	ifs, _ := net.Interfaces()
	for _, ifc := range ifs {
		if len(ifc.HardwareAddr) > 0 {
			return ifc.HardwareAddr.String()
		}
	}
	return "00:11:22:33:44:55"
}

// ---- Helpers ----

func (sc *SmartConnect) requestHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("X-ClientLocalIP", sc.clientLocalIP)
	h.Set("X-ClientPublicIP", sc.clientPublicIP)
	h.Set("X-MACAddress", sc.clientMAC)
	h.Set("X-PrivateKey", sc.apiKey)
	h.Set("X-UserType", sc.userType)
	h.Set("X-SourceID", sc.sourceID)
	if sc.accessToken != "" {
		h.Set("Authorization", "Bearer "+sc.accessToken)
	}
	return h
}

func (sc *SmartConnect) buildURL(route string) (string, error) {
	uri, ok := routes[route]
	if !ok {
		return "", fmt.Errorf("unknown route: %s", route)
	}
	return sc.rootURL + uri, nil
}

// post sends params as JSON and returns the raw response body. SmartAPI
// reports failures either as {"error_type": ...} or as {"status": false}.
func (sc *SmartConnect) post(ctx context.Context, route string, params map[string]any) ([]byte, error) {
	fullURL, err := sc.buildURL(route)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header = sc.requestHeaders()

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("smartconnect %s: %w", route, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if sc.debug {
		slog.Debug("smartconnect response", "route", route, "code", resp.StatusCode, "body", string(raw))
	}

	if !gjson.ValidBytes(raw) {
		return raw, fmt.Errorf("smartconnect %s: couldn't parse JSON response (status %d)", route, resp.StatusCode)
	}
	if et := gjson.GetBytes(raw, "error_type").String(); et != "" {
		return raw, fmt.Errorf("smartconnect %s: %s: %s", route, et, gjson.GetBytes(raw, "message").String())
	}
	if st := gjson.GetBytes(raw, "status"); st.Exists() && !st.Bool() {
		return raw, fmt.Errorf("smartconnect %s: %s (%s)", route,
			gjson.GetBytes(raw, "message").String(), gjson.GetBytes(raw, "errorcode").String())
	}
	return raw, nil
}

// ---- Setters/Getters ----

func (sc *SmartConnect) SetAccessToken(t string) { sc.accessToken = t }
func (sc *SmartConnect) GetUserID() string       { return sc.userID }
func (sc *SmartConnect) GetFeedToken() string    { return sc.feedToken }
func (sc *SmartConnect) LoggedIn() bool          { return sc.accessToken != "" }

// ---- API Methods ----

// Session holds the tokens returned by a successful login.
type Session struct {
	ClientCode   string
	JWTToken     string
	RefreshToken string
	FeedToken    string
}

// GenerateSession logs in with client code, password and a current TOTP code,
// and stores the returned tokens on the client.
func (sc *SmartConnect) GenerateSession(ctx context.Context, clientCode, password, totp string) (*Session, error) {
	raw, err := sc.post(ctx, "api.login", map[string]any{"clientcode": clientCode, "password": password, "totp": totp})
	if err != nil {
		return nil, err
	}

	data := gjson.GetBytes(raw, "data")
	if !data.IsObject() {
		return nil, errors.New("smartconnect: unexpected login response format")
	}
	s := &Session{
		ClientCode:   clientCode,
		JWTToken:     data.Get("jwtToken").String(),
		RefreshToken: data.Get("refreshToken").String(),
		FeedToken:    data.Get("feedToken").String(),
	}
	if s.JWTToken == "" {
		return nil, errors.New("smartconnect: login response without jwtToken")
	}

	sc.accessToken = s.JWTToken
	sc.refreshToken = s.RefreshToken
	sc.feedToken = s.FeedToken
	sc.userID = clientCode
	slog.Info("smartconnect session created", "client", clientCode)
	return s, nil
}

// TerminateSession logs the client out and clears its tokens.
func (sc *SmartConnect) TerminateSession(ctx context.Context) error {
	_, err := sc.post(ctx, "api.logout", map[string]any{"clientcode": sc.userID})
	sc.accessToken, sc.refreshToken, sc.feedToken = "", "", ""
	return err
}

// GenerateToken refreshes the JWT with the stored refresh token.
func (sc *SmartConnect) GenerateToken(ctx context.Context) error {
	raw, err := sc.post(ctx, "api.token", map[string]any{"refreshToken": sc.refreshToken})
	if err != nil {
		return err
	}
	if jwt := gjson.GetBytes(raw, "data.jwtToken").String(); jwt != "" {
		sc.accessToken = jwt
	}
	if ft := gjson.GetBytes(raw, "data.feedToken").String(); ft != "" {
		sc.feedToken = ft
	}
	return nil
}

// CandleRequest selects a historical candle range.
type CandleRequest struct {
	Exchange    string // NSE, BSE, NFO, MCX ...
	SymbolToken string
	Interval    string // ONE_MINUTE ... ONE_DAY
	From, To    time.Time
}

// CandleRow is one row of getCandleData: timestamp, OHLC, volume.
type CandleRow struct {
	TS     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// GetCandleData downloads historical candles, oldest first.
func (sc *SmartConnect) GetCandleData(ctx context.Context, cr CandleRequest) ([]CandleRow, error) {
	ist := time.FixedZone("IST", 5*3600+1800)
	raw, err := sc.post(ctx, "api.candle.data", map[string]any{
		"exchange":    cr.Exchange,
		"symboltoken": cr.SymbolToken,
		"interval":    cr.Interval,
		"fromdate":    cr.From.In(ist).Format(CandleTimeLayout),
		"todate":      cr.To.In(ist).Format(CandleTimeLayout),
	})
	if err != nil {
		return nil, err
	}

	data := gjson.GetBytes(raw, "data")
	if !data.IsArray() {
		if data.Type == gjson.Null {
			return nil, nil
		}
		return nil, errors.New("smartconnect: unexpected candle response format")
	}

	rows := make([]CandleRow, 0, len(data.Array()))
	for i, v := range data.Array() {
		row := v.Array()
		if len(row) < 6 {
			return nil, fmt.Errorf("smartconnect: candle row %d has %d fields", i, len(row))
		}
		ts, err := time.Parse(time.RFC3339, row[0].String())
		if err != nil {
			return nil, fmt.Errorf("smartconnect: candle row %d: %w", i, err)
		}
		rows = append(rows, CandleRow{
			TS:     ts.UTC(),
			Open:   row[1].Float(),
			High:   row[2].Float(),
			Low:    row[3].Float(),
			Close:  row[4].Float(),
			Volume: row[5].Float(),
		})
	}
	return rows, nil
}
