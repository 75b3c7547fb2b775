package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"healthsync-api/config"
	"healthsync-api/internal/converter"
	"healthsync-api/internal/delivery/dto"
	"healthsync-api/internal/domain/entity"
	"healthsync-api/internal/domain/repository"
	"healthsync-api/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrCardTypeRequired       = errors.New("card type is required for card payments")
	ErrInvalidPaymentMode     = errors.New("invalid payment mode")
	ErrInvalidCoupon          = errors.New("invalid or expired coupon")
	ErrCouponPaymentMode      = errors.New("coupon is not valid for this payment mode")
	ErrCouponCardType         = errors.New("coupon is not valid for this card type")
	ErrAppointmentAlreadyPaid = errors.New("appointment is already paid")
	ErrTransactionNotFound    = errors.New("transaction not found or already processed")
	ErrPaymentVerification    = errors.New("payment verification failed")
	ErrPaymentGateway         = errors.New("failed to create payment order")
)

const transactionEntity = "transaction"

var hundred = decimal.NewFromInt(100)

type PaymentUsecase interface {
	CreatePaymentOrder(ctx context.Context, patientID uuid.UUID, req *dto.CreatePaymentOrderRequest) (*dto.PaymentOrderResponse, error)
	VerifyPayment(ctx context.Context, patientID uuid.UUID, req *dto.VerifyPaymentRequest) (*dto.TransactionResponse, error)
}

type paymentUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	txManager        repository.TxManager
	appointmentRepo  repository.AppointmentRepository
	transactionRepo  repository.TransactionRepository
	couponRepo       repository.CouponRepository
	userRepo         repository.UserRepository
	gateway          service.PaymentGateway
	invoiceGenerator service.InvoiceGenerator
	mailer           service.Mailer
	auditService     service.AuditService
	paymentConfig    config.PaymentConfig
}

func NewPaymentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	txManager repository.TxManager,
	appointmentRepo repository.AppointmentRepository,
	transactionRepo repository.TransactionRepository,
	couponRepo repository.CouponRepository,
	userRepo repository.UserRepository,
	gateway service.PaymentGateway,
	invoiceGenerator service.InvoiceGenerator,
	mailer service.Mailer,
	auditService service.AuditService,
	paymentConfig config.PaymentConfig,
) PaymentUsecase {
	return &paymentUsecase{
		db:               db,
		log:              log,
		txManager:        txManager,
		appointmentRepo:  appointmentRepo,
		transactionRepo:  transactionRepo,
		couponRepo:       couponRepo,
		userRepo:         userRepo,
		gateway:          gateway,
		invoiceGenerator: invoiceGenerator,
		mailer:           mailer,
		auditService:     auditService,
		paymentConfig:    paymentConfig,
	}
}

// PriceBreakdown is the computed bill for one consultation.
type PriceBreakdown struct {
	Base     decimal.Decimal
	GST      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// CalculatePrice applies GST to base and subtracts the coupon discount.
// The total never goes below zero.
func CalculatePrice(base, gstPercentage decimal.Decimal, coupon *entity.Coupon) PriceBreakdown {
	gst := base.Mul(gstPercentage).Div(hundred).Round(2)
	discount := decimal.Zero
	if coupon != nil {
		discount = coupon.Discount(base)
	}

	total := base.Add(gst).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return PriceBreakdown{Base: base, GST: gst, Discount: discount, Total: total}
}

// toPaise converts rupees to the gateway's smallest currency unit.
func toPaise(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// generateInvoiceNumber returns HS-INV-YYYYMMDD-XXXXXX.
func generateInvoiceNumber(now time.Time) (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("HS-INV-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(b))), nil
}

func (u *paymentUsecase) resolveCoupon(ctx context.Context, code string, mode entity.PaymentMode, cardType *entity.CardType) (*entity.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	coupon, err := u.couponRepo.FindActiveByCode(ctx, u.db, code)
	if err != nil {
		u.log.Warnf("Failed to find coupon %s: %+v", code, err)
		return nil, err
	}
	if coupon == nil || coupon.IsExpired(time.Now()) {
		return nil, ErrInvalidCoupon
	}
	if coupon.IntendedPaymentMode != nil && *coupon.IntendedPaymentMode != mode {
		return nil, ErrCouponPaymentMode
	}
	if mode == entity.PaymentModeCard && cardType != nil && !coupon.AllowsCard(*cardType) {
		return nil, ErrCouponCardType
	}
	return coupon, nil
}

// CreatePaymentOrder prices the consultation and opens a gateway order.
//
// Flow:
// 1. Validate payment mode and the patient's appointment
// 2. Resolve coupon and compute the price breakdown
// 3. Persist a CREATED transaction with a fresh invoice number
// 4. Create the gateway order (receipt = invoice number) and store its id
func (u *paymentUsecase) CreatePaymentOrder(ctx context.Context, patientID uuid.UUID, req *dto.CreatePaymentOrderRequest) (*dto.PaymentOrderResponse, error) {
	// Step 1
	mode := entity.PaymentMode(strings.ToUpper(req.PaymentMode))
	var cardType *entity.CardType
	switch mode {
	case entity.PaymentModeUPI:
	case entity.PaymentModeCard:
		if req.CardType == "" {
			return nil, ErrCardTypeRequired
		}
		ct := entity.CardType(strings.ToUpper(req.CardType))
		cardType = &ct
	default:
		return nil, ErrInvalidPaymentMode
	}

	appointmentID, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		return nil, ErrAppointmentNotFound
	}
	appointment, err := u.appointmentRepo.FindByID(ctx, u.db, appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil || appointment.PatientID != patientID || appointment.IsCancelled() {
		return nil, ErrAppointmentNotFound
	}
	if appointment.PaymentStatus == entity.PaymentStatusPaid {
		return nil, ErrAppointmentAlreadyPaid
	}

	// Step 2
	coupon, err := u.resolveCoupon(ctx, req.CouponCode, mode, cardType)
	if err != nil {
		return nil, err
	}
	price := CalculatePrice(u.paymentConfig.ConsultationFee, u.paymentConfig.GSTPercentage, coupon)

	// Step 3
	invoiceNumber, err := generateInvoiceNumber(time.Now())
	if err != nil {
		u.log.Warnf("Failed to generate invoice number: %+v", err)
		return nil, err
	}

	transaction := &entity.Transaction{
		AppointmentID:  appointment.ID,
		PatientID:      patientID,
		DoctorID:       appointment.DoctorID,
		BaseAmount:     price.Base,
		GSTPercentage:  u.paymentConfig.GSTPercentage,
		GSTAmount:      price.GST,
		DiscountAmount: price.Discount,
		TotalAmount:    price.Total,
		PaymentMode:    mode,
		CardType:       cardType,
		Gateway:        entity.PaymentGatewayRazorpay,
		InvoiceNumber:  &invoiceNumber,
		Status:         entity.TransactionStatusCreated,
	}
	if coupon != nil {
		transaction.CouponID = &coupon.ID
		transaction.CouponCode = &coupon.Code
	}

	err = u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := u.transactionRepo.Create(ctx, tx, transaction); err != nil {
			return err
		}
		return u.auditService.LogCreate(ctx, tx, &patientID, entity.AuditActionPaymentOrderCreate, transactionEntity, transaction.ID.String(),
			map[string]interface{}{
				"appointment_id": appointment.ID,
				"total_amount":   price.Total,
				"coupon_code":    transaction.CouponCode,
			})
	})
	if err != nil {
		u.log.Warnf("Failed to create transaction: %+v", err)
		return nil, err
	}

	// Step 4
	order, err := u.gateway.CreateOrder(ctx, service.CreateOrderInput{
		Amount:   toPaise(price.Total),
		Currency: u.paymentConfig.Currency,
		Receipt:  invoiceNumber,
		Notes: map[string]string{
			"appointmentId": appointment.ID.String(),
			"patientId":     patientID.String(),
			"transactionId": transaction.ID.String(),
		},
	})
	if err != nil {
		u.log.Warnf("Failed to create gateway order for transaction %s: %+v", transaction.ID, err)
		transaction.Status = entity.TransactionStatusFailed
		if updateErr := u.transactionRepo.Update(ctx, u.db, transaction); updateErr != nil {
			u.log.Warnf("Failed to mark transaction %s failed: %+v", transaction.ID, updateErr)
		}
		return nil, ErrPaymentGateway
	}

	transaction.GatewayOrderID = &order.ID
	if err := u.transactionRepo.Update(ctx, u.db, transaction); err != nil {
		u.log.Warnf("Failed to store gateway order id: %+v", err)
		return nil, err
	}

	u.log.Infof("Payment order created: transaction=%s, order=%s, amount=%d", transaction.ID, order.ID, order.Amount)
	return &dto.PaymentOrderResponse{
		TransactionID:  transaction.ID,
		OrderID:        order.ID,
		KeyID:          u.gateway.KeyID(),
		Amount:         order.Amount,
		Currency:       order.Currency,
		InvoiceNumber:  invoiceNumber,
		BaseAmount:     price.Base,
		GSTAmount:      price.GST,
		DiscountAmount: price.Discount,
		TotalAmount:    price.Total,
		CouponCode:     transaction.CouponCode,
	}, nil
}

// VerifyPayment checks the gateway signature, marks the transaction PAID and
// confirms the appointment. A bad signature leaves the transaction CREATED.
func (u *paymentUsecase) VerifyPayment(ctx context.Context, patientID uuid.UUID, req *dto.VerifyPaymentRequest) (*dto.TransactionResponse, error) {
	transaction, err := u.transactionRepo.FindCreatedByOrderID(ctx, u.db, req.OrderID)
	if err != nil {
		u.log.Warnf("Failed to find transaction for order %s: %+v", req.OrderID, err)
		return nil, err
	}
	if transaction == nil || transaction.PatientID != patientID {
		return nil, ErrTransactionNotFound
	}

	if !u.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		u.log.Warnf("Payment signature mismatch for order %s", req.OrderID)
		return nil, ErrPaymentVerification
	}

	receipt := entity.PaymentReceipt{
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		PaidAt:    time.Now(),
	}

	err = u.txManager.WithinTransaction(ctx, func(tx *gorm.DB) error {
		rows, err := u.transactionRepo.MarkPaid(ctx, tx, transaction.ID, receipt)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrTransactionNotFound
		}

		rows, err = u.appointmentRepo.Confirm(ctx, tx, transaction.AppointmentID)
		if err != nil {
			return err
		}
		if rows == 0 {
			u.log.Errorf("Payment %s captured for cancelled appointment %s", req.PaymentID, transaction.AppointmentID)
		}

		return u.auditService.LogUpdate(ctx, tx, &patientID, entity.AuditActionPaymentVerify, transactionEntity, transaction.ID.String(),
			map[string]interface{}{"status": entity.TransactionStatusCreated},
			map[string]interface{}{"status": entity.TransactionStatusPaid, "payment_id": req.PaymentID})
	})
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		u.log.Warnf("Failed to confirm payment for order %s: %+v", req.OrderID, err)
		return nil, err
	}

	transaction.MarkPaid(receipt)
	u.sendInvoice(ctx, transaction)

	u.log.Infof("Payment verified: transaction=%s, payment=%s", transaction.ID, req.PaymentID)
	return converter.TransactionToResponse(transaction), nil
}

// sendInvoice renders and mails the invoice. Failures are logged only.
func (u *paymentUsecase) sendInvoice(ctx context.Context, transaction *entity.Transaction) {
	patient, err := u.userRepo.FindByID(ctx, u.db, transaction.PatientID)
	if err != nil || patient == nil {
		u.log.Warnf("Skipping invoice for transaction %s, patient not loaded: %+v", transaction.ID, err)
		return
	}

	data := service.InvoiceData{
		InvoiceDate:    *transaction.PaidAt,
		PatientName:    patient.Name,
		PatientEmail:   patient.Email,
		PaymentMode:    string(transaction.PaymentMode),
		PaymentID:      *transaction.GatewayPaymentID,
		Currency:       u.paymentConfig.Currency,
		BaseAmount:     transaction.BaseAmount,
		GSTPercentage:  transaction.GSTPercentage,
		GSTAmount:      transaction.GSTAmount,
		DiscountAmount: transaction.DiscountAmount,
		TotalAmount:    transaction.TotalAmount,
	}
	if transaction.InvoiceNumber != nil {
		data.InvoiceNumber = *transaction.InvoiceNumber
	}
	if doctor, err := u.userRepo.FindByID(ctx, u.db, transaction.DoctorID); err == nil && doctor != nil {
		data.DoctorName = doctor.Name
	}
	if appointment, err := u.appointmentRepo.FindByID(ctx, u.db, transaction.AppointmentID); err == nil && appointment != nil {
		data.AppointmentDate = appointment.AppointmentDate.Format(entity.DateLayout)
		data.SlotTime = appointment.SlotTime
		data.QueueNumber = appointment.QueueNumber
	}

	pdf, err := u.invoiceGenerator.Generate(data)
	if err != nil {
		u.log.Warnf("Failed to generate invoice %s: %+v", data.InvoiceNumber, err)
		return
	}
	if err := u.mailer.Send(ctx, service.PaymentConfirmationMail(patient.Email, data.InvoiceNumber, pdf)); err != nil {
		u.log.Warnf("Failed to send invoice %s to %s: %+v", data.InvoiceNumber, patient.Email, err)
	}
}
