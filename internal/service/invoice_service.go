package service

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
)

// InvoiceData is everything printed on a paid consultation invoice.
type InvoiceData struct {
	InvoiceNumber   string
	InvoiceDate     time.Time
	PatientName     string
	PatientEmail    string
	DoctorName      string
	AppointmentDate string
	SlotTime        string
	QueueNumber     int
	PaymentMode     string
	PaymentID       string
	Currency        string
	BaseAmount      decimal.Decimal
	GSTPercentage   decimal.Decimal
	GSTAmount       decimal.Decimal
	DiscountAmount  decimal.Decimal
	TotalAmount     decimal.Decimal
}

type InvoiceGenerator interface {
	Generate(data InvoiceData) ([]byte, error)
}

type pdfInvoiceGenerator struct{}

func NewPDFInvoiceGenerator() InvoiceGenerator {
	return &pdfInvoiceGenerator{}
}

// Generate renders a single-page A4 invoice
func (g *pdfInvoiceGenerator) Generate(data InvoiceData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(20, 90, 160)
	pdf.CellFormat(0, 10, "HealthSync - OPD Consultation", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 7, "GST exempt healthcare service", "", 1, "C", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Invoice", "1", 1, "C", false, 0, "")
	addInvoiceRow(pdf, "Invoice No", data.InvoiceNumber, true)
	addInvoiceRow(pdf, "Invoice Date", data.InvoiceDate.Format("2006-01-02"), true)
	addInvoiceRow(pdf, "Patient", data.PatientName, true)
	addInvoiceRow(pdf, "Email", data.PatientEmail, false)
	addInvoiceRow(pdf, "Doctor", data.DoctorName, true)
	addInvoiceRow(pdf, "Appointment Date", data.AppointmentDate, false)
	addInvoiceRow(pdf, "Time Slot", data.SlotTime, false)
	addInvoiceRow(pdf, "Queue Number", fmt.Sprintf("%d", data.QueueNumber), false)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, "Payment Details", "1", 1, "C", false, 0, "")
	addInvoiceRow(pdf, "Payment Mode", data.PaymentMode, false)
	addInvoiceRow(pdf, "Payment ID", data.PaymentID, false)
	addInvoiceRow(pdf, "Consultation Fee", formatAmount(data.Currency, data.BaseAmount), false)
	addInvoiceRow(pdf, fmt.Sprintf("GST (%s%%)", data.GSTPercentage.StringFixed(0)), formatAmount(data.Currency, data.GSTAmount), false)
	addInvoiceRow(pdf, "Discount", formatAmount(data.Currency, data.DiscountAmount), false)
	addInvoiceRow(pdf, "Amount Paid", formatAmount(data.Currency, data.TotalAmount), true)

	pdf.SetY(pdf.GetY() + 12)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 10, "This is a computer generated invoice", "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", data.InvoiceNumber, err)
	}
	return buf.Bytes(), nil
}

func addInvoiceRow(pdf *gofpdf.Fpdf, label, value string, bold bool) {
	if bold {
		pdf.SetFont("Arial", "B", 11)
	} else {
		pdf.SetFont("Arial", "", 10)
	}
	pdf.CellFormat(50, 9, label, "1", 0, "", false, 0, "")
	pdf.CellFormat(0, 9, value, "1", 1, "", false, 0, "")
}

// formatAmount avoids the rupee sign, which the core PDF fonts cannot encode.
func formatAmount(currency string, amount decimal.Decimal) string {
	return currency + " " + amount.StringFixed(2)
}
