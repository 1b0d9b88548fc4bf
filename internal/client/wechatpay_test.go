package client

import (
	"context"
	"io"
	"merchant-phone-search/internal/config"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "192006250b4c09247ec02edce69f6a2d"

func TestSignMatchesReferenceVector(t *testing.T) {
	// worked example from the provider's APIv2 signing documentation
	fields := map[string]string{
		"appid":       "wxd930ea5d5a258f4f",
		"mch_id":      "10000100",
		"device_info": "1000",
		"body":        "test",
		"nonce_str":   "ibuaiVcKdpRxkhJA",
	}
	assert.Equal(t, "9A0A8659F005D6984697E2CA0A9CF3B7", Sign(fields, testAPIKey))
}

func TestSignSkipsEmptyAndSignFields(t *testing.T) {
	fields := map[string]string{
		"appid":  "wx-1",
		"mch_id": "m-1",
	}
	want := Sign(fields, "secret")

	fields["sign"] = "SHOULD-BE-IGNORED"
	fields["attach"] = ""
	assert.Equal(t, want, Sign(fields, "secret"))
}

func TestVerifySignDetectsTampering(t *testing.T) {
	c := NewWechatPayClient(&config.WechatPay{APIKey: "secret"})

	fields := map[string]string{
		"return_code":  "SUCCESS",
		"out_trade_no": "order-1",
		"total_fee":    "1000",
	}
	fields["sign"] = Sign(fields, "secret")
	require.True(t, c.VerifySign(fields))

	fields["total_fee"] = "1"
	assert.False(t, c.VerifySign(fields))
}

func TestVerifySignMissingSignature(t *testing.T) {
	c := NewWechatPayClient(&config.WechatPay{APIKey: "secret"})
	assert.False(t, c.VerifySign(map[string]string{"return_code": "SUCCESS"}))
}

func TestXMLFieldsRoundTrip(t *testing.T) {
	fields := map[string]string{
		"return_code": "SUCCESS",
		"return_msg":  "OK",
		"body":        "standard 会员升级",
		"attach":      "a&b<c",
	}

	decoded, err := DecodeXMLFields(EncodeXMLFields(fields))
	require.NoError(t, err)
	assert.Equal(t, fields, decoded)
}

func TestDecodeXMLFieldsRejectsGarbage(t *testing.T) {
	_, err := DecodeXMLFields([]byte("no xml here"))
	assert.Error(t, err)
}

func TestDecodeXMLFieldsHandlesCDATA(t *testing.T) {
	body := []byte(`<xml><return_code><![CDATA[SUCCESS]]></return_code><return_msg><![CDATA[OK]]></return_msg></xml>`)
	fields, err := DecodeXMLFields(body)
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", fields["return_code"])
	assert.Equal(t, "OK", fields["return_msg"])
}

func TestCreateNativeOrder(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received, _ = DecodeXMLFields(body)

		w.Write(EncodeXMLFields(map[string]string{
			"return_code": "SUCCESS",
			"result_code": "SUCCESS",
			"code_url":    "weixin://wxpay/bizpayurl?pr=abc",
			"prepay_id":   "wx20240601",
		}))
	}))
	defer srv.Close()

	c := NewWechatPayClient(&config.WechatPay{
		AppID:           "wx-app-1",
		MchID:           "mch-1",
		APIKey:          "secret",
		NotifyURL:       "https://example.com/api/payment/notify",
		UnifiedOrderURL: srv.URL,
	})

	result, err := c.CreateNativeOrder(context.Background(), "order-1", 1000, "standard 会员升级", "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "weixin://wxpay/bizpayurl?pr=abc", result.CodeURL)
	assert.Equal(t, "wx20240601", result.PrepayID)

	require.NotNil(t, received)
	assert.Equal(t, "order-1", received["out_trade_no"])
	assert.Equal(t, "1000", received["total_fee"])
	assert.Equal(t, "NATIVE", received["trade_type"])
	// the request itself is signed
	assert.Equal(t, Sign(received, "secret"), received["sign"])
}

func TestCreateNativeOrderProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(EncodeXMLFields(map[string]string{
			"return_code":  "SUCCESS",
			"result_code":  "FAIL",
			"err_code_des": "商户订单号重复",
		}))
	}))
	defer srv.Close()

	c := NewWechatPayClient(&config.WechatPay{
		APIKey:          "secret",
		UnifiedOrderURL: srv.URL,
	})

	_, err := c.CreateNativeOrder(context.Background(), "order-1", 1000, "desc", "1.2.3.4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "商户订单号重复")
}
