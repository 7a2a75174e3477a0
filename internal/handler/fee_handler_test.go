package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestFeeWebhookRejectsBadSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFeeHandler(nil, "callback-secret")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := []byte(`{"ref":"gw-1","status":"paid"}`)
	req, _ := http.NewRequest(http.MethodPost, "/fees/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhookSignatureHeader, "deadbeef")
	c.Request = req

	handler.Webhook(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFeeWebhookRejectsMissingSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFeeHandler(nil, "callback-secret")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/fees/webhook", bytes.NewReader([]byte(`{}`)))
	c.Request = req

	handler.Webhook(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFeeWebhookValidSignatureBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFeeHandler(nil, "callback-secret")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body := []byte(`not json`)
	req, _ := http.NewRequest(http.MethodPost, "/fees/webhook", bytes.NewReader(body))
	req.Header.Set(webhookSignatureHeader, signBody("callback-secret", body))
	c.Request = req

	handler.Webhook(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
