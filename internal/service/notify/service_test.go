package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	"github.com/mamadbah2/dairy-dwr/internal/service/directory"
	client "github.com/mamadbah2/dairy-dwr/pkg/clients/whatsapp"
)

type fakeClient struct {
	sent []client.SendTextMessageRequest
	err  error
}

func (f *fakeClient) SendTextMessage(_ context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, req)
	resp := &client.SendTextMessageResponse{}
	resp.Messages = append(resp.Messages, struct {
		ID string `json:"id"`
	}{ID: "wamid.1"})
	return resp, nil
}

func newDirectory() *directory.Directory {
	return directory.New(decimal.NewFromInt(500), nil)
}

func TestSaleSettled(t *testing.T) {
	fc := &fakeClient{}
	n := NewWhatsAppNotifier(fc, newDirectory(), nil)

	n.SaleSettled(context.Background(), models.Settlement{
		Contract: models.SalesContract{Price: decimal.NewFromInt(150000), NetToOwner: decimal.NewFromInt(45000)},
		Receipt:  models.Receipt{ID: "DWR-1", OwnerEntityID: "E-WG-001"},
		RepaidAdvance: &models.Advance{
			ID:        "ADV-1",
			Principal: decimal.NewFromInt(100000),
			Fee:       decimal.NewFromInt(5000),
		},
	})

	require.Len(t, fc.sent, 1)
	assert.Equal(t, "+22370000001", fc.sent[0].To)
	assert.Contains(t, fc.sent[0].Body, "Price: 150000 XOF")
	assert.Contains(t, fc.sent[0].Body, "Advance ADV-1 repaid: 105000 XOF")
	assert.Contains(t, fc.sent[0].Body, "Net to you: 45000 XOF")
}

func TestReleaseConfirmed_NamesBuyer(t *testing.T) {
	fc := &fakeClient{}
	n := NewWhatsAppNotifier(fc, newDirectory(), nil)

	n.ReleaseConfirmed(context.Background(),
		models.ReleaseOrder{ID: "RO-1", BuyerEntityID: "E-BUY-001"},
		models.Receipt{ID: "DWR-1", LotID: "LOT-1", OwnerEntityID: "E-WG-001"})

	require.Len(t, fc.sent, 1)
	assert.Contains(t, fc.sent[0].Body, "Hôpital Régional Sikasso")
}

func TestSend_FailuresAreSwallowed(t *testing.T) {
	fc := &fakeClient{err: errors.New("timeout")}
	n := NewWhatsAppNotifier(fc, newDirectory(), nil)

	assert.NotPanics(t, func() {
		n.DisputeFiled(context.Background(), models.Dispute{ID: "DSP-1", Type: models.DisputeQuality}, models.Receipt{ID: "DWR-1", OwnerEntityID: "E-WG-001"})
		n.DisputeFiled(context.Background(), models.Dispute{ID: "DSP-2"}, models.Receipt{ID: "DWR-2", OwnerEntityID: "E-NOPE"})
	})
}

func TestNilClientIsNoop(t *testing.T) {
	n := NewWhatsAppNotifier(nil, newDirectory(), nil)

	assert.NotPanics(t, func() {
		n.SaleSettled(context.Background(), models.Settlement{Receipt: models.Receipt{OwnerEntityID: "E-WG-001"}})
	})
}
