package converter

import (
	"healthsync-api/internal/delivery/dto"
	"healthsync-api/internal/domain/entity"
)

func TransactionToResponse(t *entity.Transaction) *dto.TransactionResponse {
	if t == nil {
		return nil
	}

	var cardType *string
	if t.CardType != nil {
		ct := string(*t.CardType)
		cardType = &ct
	}

	return &dto.TransactionResponse{
		ID:               t.ID,
		AppointmentID:    t.AppointmentID,
		Status:           string(t.Status),
		PaymentMode:      string(t.PaymentMode),
		CardType:         cardType,
		TotalAmount:      t.TotalAmount,
		GatewayOrderID:   t.GatewayOrderID,
		GatewayPaymentID: t.GatewayPaymentID,
		InvoiceNumber:    t.InvoiceNumber,
		PaidAt:           t.PaidAt,
	}
}
