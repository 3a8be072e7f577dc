package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	"github.com/mamadbah2/dairy-dwr/internal/service/receipts"
	"github.com/mamadbah2/dairy-dwr/internal/service/settlement"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePayments struct {
	actor models.Actor
	in    settlement.ConfirmPaymentInput
	err   error
}

func (f *fakePayments) ConfirmPayment(_ context.Context, actor models.Actor, in settlement.ConfirmPaymentInput) (models.Settlement, error) {
	f.actor, f.in = actor, in
	if f.err != nil {
		return models.Settlement{}, f.err
	}
	return models.Settlement{
		Contract: models.SalesContract{ID: in.ContractID, NetToOwner: decimal.NewFromInt(45000)},
		Payment:  models.Payment{ID: "PAY-1"},
		Receipt:  models.Receipt{ID: "DWR-1", Status: models.ReceiptSold},
	}, nil
}

func postWebhook(h *WebhookHandler, secret, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/webhooks/mobile-money", h.MobileMoney)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/mobile-money", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const callback = `{"contract_id":"SC-1","method":"orange_money","provider_ref":"OM-1"}`

func TestMobileMoney_ConfirmsAsSystemActor(t *testing.T) {
	payments := &fakePayments{}
	h := NewWebhookHandler(payments, "s3cret", "E-PLAT-001", nil)

	w := postWebhook(h, "s3cret", callback)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "system", payments.actor.Username)
	assert.Equal(t, models.RolePlatform, payments.actor.Role)
	assert.Equal(t, "E-PLAT-001", payments.actor.EntityID)
	assert.Equal(t, models.MethodOrangeMoney, payments.in.Method)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "PAY-1", body["payment_id"])
	assert.Equal(t, "sold", body["receipt_status"])
	assert.Equal(t, "45000", body["net_to_owner_xof"])
}

func TestMobileMoney_RejectsBadSecret(t *testing.T) {
	payments := &fakePayments{}
	h := NewWebhookHandler(payments, "s3cret", "E-PLAT-001", nil)

	assert.Equal(t, http.StatusUnauthorized, postWebhook(h, "", callback).Code)
	assert.Equal(t, http.StatusUnauthorized, postWebhook(h, "guess", callback).Code)
	assert.Empty(t, payments.in.ContractID)
}

func TestMobileMoney_BadPayload(t *testing.T) {
	h := NewWebhookHandler(&fakePayments{}, "s3cret", "E-PLAT-001", nil)

	assert.Equal(t, http.StatusBadRequest, postWebhook(h, "s3cret", `{"contract_id":"SC-1"}`).Code)
}

func TestMobileMoney_ErrorStatuses(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("confirm payment for SC-1: %w", models.ErrNotPending), http.StatusConflict},
		{models.ErrNotFound, http.StatusNotFound},
		{models.NewValidationError("method", "unknown payment method"), http.StatusBadRequest},
		{&models.TransitionError{Entity: "dwr", From: "expired", To: "sold"}, http.StatusUnprocessableEntity},
		{fmt.Errorf("acquire receipt:DWR-1: %w", models.ErrConflict), http.StatusConflict},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h := NewWebhookHandler(&fakePayments{err: tt.err}, "s3cret", "E-PLAT-001", nil)
		w := postWebhook(h, "s3cret", callback)
		assert.Equal(t, tt.want, w.Code, tt.err.Error())
	}
}

type fakeVerifier struct {
	v   receipts.Verification
	err error
}

func (f fakeVerifier) Verify(context.Context, string) (receipts.Verification, error) {
	return f.v, f.err
}

func getVerify(h *VerifyHandler, q string) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/verify", h.Verify)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/verify?q="+q, nil))
	return w
}

func TestVerify(t *testing.T) {
	ok := NewVerifyHandler(fakeVerifier{v: receipts.Verification{Receipt: models.Receipt{ID: "DWR-1"}, Verified: true}}, nil)
	w := getVerify(ok, "DWR-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"verified":true`)

	assert.Equal(t, http.StatusBadRequest, getVerify(ok, "").Code)

	missing := NewVerifyHandler(fakeVerifier{err: models.ErrNotFound}, nil)
	assert.Equal(t, http.StatusNotFound, getVerify(missing, "DWR-NOPE").Code)
}
