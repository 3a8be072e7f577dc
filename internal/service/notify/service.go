// Package notify sends WhatsApp messages to lot owners once a settlement,
// dispute or release has committed. Delivery failures are logged and dropped.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-dwr/internal/domain/models"
	client "github.com/mamadbah2/dairy-dwr/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

type entityDirectory interface {
	Entity(id string) (models.Entity, error)
}

// WhatsAppNotifier notifies owners through the WhatsApp Cloud API. A nil
// client turns every notification into a debug log line.
type WhatsAppNotifier struct {
	client client.Client
	dir    entityDirectory
	logger *zap.Logger
}

// NewWhatsAppNotifier wires a notifier. client may be nil.
func NewWhatsAppNotifier(client client.Client, dir entityDirectory, logger *zap.Logger) *WhatsAppNotifier {
	n := &WhatsAppNotifier{
		client: client,
		dir:    dir,
		logger: logger,
	}
	if n.logger == nil {
		n.logger = zap.NewNop()
	}
	return n
}

// SaleSettled tells the owner the sale closed and what they net.
func (n *WhatsAppNotifier) SaleSettled(ctx context.Context, s models.Settlement) {
	body := fmt.Sprintf("Sale settled for receipt %s.\nPrice: %s XOF", s.Receipt.ID, s.Contract.Price.StringFixed(0))
	if s.RepaidAdvance != nil {
		body += fmt.Sprintf("\nAdvance %s repaid: %s XOF", s.RepaidAdvance.ID, s.RepaidAdvance.Outstanding().StringFixed(0))
	}
	body += fmt.Sprintf("\nNet to you: %s XOF", s.Contract.NetToOwner.StringFixed(0))
	n.send(ctx, s.Receipt.OwnerEntityID, "sale_settled", body)
}

// DisputeFiled tells the owner their receipt is frozen.
func (n *WhatsAppNotifier) DisputeFiled(ctx context.Context, d models.Dispute, r models.Receipt) {
	body := fmt.Sprintf("A %s dispute (%s) was filed on receipt %s. The receipt is frozen until it is resolved.",
		d.Type, d.ID, r.ID)
	n.send(ctx, r.OwnerEntityID, "dispute_filed", body)
}

// ReleaseConfirmed tells the owner the lot left the custodian.
func (n *WhatsAppNotifier) ReleaseConfirmed(ctx context.Context, o models.ReleaseOrder, r models.Receipt) {
	buyer := o.BuyerEntityID
	if e, err := n.dir.Entity(o.BuyerEntityID); err == nil {
		buyer = e.Name
	}
	body := fmt.Sprintf("Lot %s (receipt %s) was released to %s.", r.LotID, r.ID, buyer)
	n.send(ctx, r.OwnerEntityID, "release_confirmed", body)
}

func (n *WhatsAppNotifier) send(ctx context.Context, entityID, kind, body string) {
	logger := n.logger.With(zap.String("kind", kind), zap.String("entity_id", entityID))
	if n.client == nil {
		logger.Debug("notifications disabled")
		return
	}

	owner, err := n.dir.Entity(entityID)
	if err != nil {
		logger.Warn("notification recipient unknown", zap.Error(err))
		return
	}
	if owner.Phone == "" {
		logger.Debug("recipient has no phone")
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	resp, err := n.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:   owner.Phone,
		Body: body,
	})
	if err != nil {
		logger.Error("failed to send notification", zap.Error(err))
		return
	}
	if len(resp.Messages) > 0 {
		logger.Info("notification sent", zap.String("message_id", resp.Messages[0].ID))
	}
}
