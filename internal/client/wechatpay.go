package client

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/xml"
	"fmt"
	"io"
	"merchant-phone-search/internal/config"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WechatPayClient covers the WeChat Pay APIv2 surface used by this service:
// Native (QR) unified orders plus the signature and XML plumbing shared with
// the notification webhook.
type WechatPayClient interface {
	CreateNativeOrder(ctx context.Context, outTradeNo string, amount int64, description, clientIP string) (*NativeOrderResult, error)
	VerifySign(fields map[string]string) bool
}

type NativeOrderResult struct {
	CodeURL  string
	PrepayID string
}

type wechatPayClientImpl struct {
	httpClient *http.Client
	cfg        config.WechatPay
}

func NewWechatPayClient(cfg *config.WechatPay) WechatPayClient {
	return &wechatPayClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cfg: *cfg,
	}
}

// Sign implements the APIv2 signature: sort fields by key, drop the sign
// field and empty values, join as k=v with &, append &key=<secret>, MD5,
// uppercase hex.
func Sign(fields map[string]string, apiKey string) string {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if k == "sign" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
		b.WriteByte('&')
	}
	b.WriteString("key=")
	b.WriteString(apiKey)

	return fmt.Sprintf("%X", md5.Sum([]byte(b.String())))
}

func (c *wechatPayClientImpl) VerifySign(fields map[string]string) bool {
	supplied, ok := fields["sign"]
	if !ok || supplied == "" {
		return false
	}
	return Sign(fields, c.cfg.APIKey) == supplied
}

// EncodeXMLFields renders a flat <xml> document from a field map, keys in
// sorted order for deterministic output.
func EncodeXMLFields(fields map[string]string) []byte {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b bytes.Buffer
	b.WriteString("<xml>")
	for _, k := range keys {
		b.WriteString("<" + k + ">")
		xml.EscapeText(&b, []byte(fields[k]))
		b.WriteString("</" + k + ">")
	}
	b.WriteString("</xml>")
	return b.Bytes()
}

// DecodeXMLFields parses a flat <xml> document into a field map. The payment
// provider's payloads carry a dynamic field set, and the signature covers
// every delivered field, so a generic map is the unit of exchange.
func DecodeXMLFields(body []byte) (map[string]string, error) {
	fields := make(map[string]string)
	decoder := xml.NewDecoder(bytes.NewReader(body))

	depth := 0
	var current string
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				current = t.Name.Local
			}
		case xml.EndElement:
			depth--
			current = ""
		case xml.CharData:
			if depth == 2 && current != "" {
				fields[current] += string(t)
			}
		}
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("parse xml: no fields")
	}
	return fields, nil
}

func (c *wechatPayClientImpl) CreateNativeOrder(ctx context.Context, outTradeNo string, amount int64, description, clientIP string) (*NativeOrderResult, error) {
	params := map[string]string{
		"appid":            c.cfg.AppID,
		"mch_id":           c.cfg.MchID,
		"nonce_str":        nonceStr(),
		"body":             description,
		"out_trade_no":     outTradeNo,
		"total_fee":        fmt.Sprintf("%d", amount),
		"spbill_create_ip": clientIP,
		"notify_url":       c.cfg.NotifyURL,
		"trade_type":       "NATIVE",
	}
	params["sign"] = Sign(params, c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.UnifiedOrderURL, bytes.NewReader(EncodeXMLFields(params)))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wechat unified order request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read unified order response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("wechat error %d: %s", resp.StatusCode, string(body))
	}

	result, err := DecodeXMLFields(body)
	if err != nil {
		return nil, fmt.Errorf("decode unified order response: %w", err)
	}

	if result["return_code"] != "SUCCESS" || result["result_code"] != "SUCCESS" {
		msg := result["err_code_des"]
		if msg == "" {
			msg = result["return_msg"]
		}
		if msg == "" {
			msg = "unified order failed"
		}
		return nil, fmt.Errorf("wechat unified order: %s", msg)
	}

	return &NativeOrderResult{
		CodeURL:  result["code_url"],
		PrepayID: result["prepay_id"],
	}, nil
}

func nonceStr() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
