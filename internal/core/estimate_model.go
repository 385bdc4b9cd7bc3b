package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type EstimateStatus string

const (
	EstimateDraft     EstimateStatus = "draft"
	EstimateSent      EstimateStatus = "sent"
	EstimateViewed    EstimateStatus = "viewed"
	EstimateApproved  EstimateStatus = "approved"
	EstimateRejected  EstimateStatus = "rejected"
	EstimateExpired   EstimateStatus = "expired"
	EstimateConverted EstimateStatus = "converted"
)

// estimateTransitions is the estimate state machine. Leaving draft freezes
// the line items; re-pricing after that point means a new estimate.
var estimateTransitions = map[EstimateStatus][]EstimateStatus{
	EstimateDraft:    {EstimateSent},
	EstimateSent:     {EstimateViewed, EstimateApproved, EstimateRejected, EstimateExpired},
	EstimateViewed:   {EstimateApproved, EstimateRejected, EstimateExpired},
	EstimateApproved: {EstimateConverted},
}

// CanTransitionEstimate reports whether the estimate state machine allows
// moving from one status to another.
func CanTransitionEstimate(from, to EstimateStatus) bool {
	for _, next := range estimateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Estimate struct {
	ID         int             `json:"id"`
	CompanyID  int             `json:"company_id"`
	CustomerID *int            `json:"customer_id,omitempty"`
	Status     EstimateStatus  `json:"status"`
	Tier       Tier            `json:"tier"`
	Subtotal   Cents           `json:"subtotal"`
	Tax        Cents           `json:"tax"`
	Total      Cents           `json:"total"`
	TaxRate    decimal.Decimal `json:"tax_rate"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Lines      []PricedLine    `json:"lines"`
}

type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "draft"
	InvoiceSent  InvoiceStatus = "sent"
	InvoicePaid  InvoiceStatus = "paid"
	InvoiceVoid  InvoiceStatus = "void"
)

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceDraft: {InvoiceSent, InvoiceVoid},
	InvoiceSent:  {InvoicePaid, InvoiceVoid},
}

// CanTransitionInvoice reports whether the invoice state machine allows
// moving from one status to another.
func CanTransitionInvoice(from, to InvoiceStatus) bool {
	for _, next := range invoiceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Invoice struct {
	ID         int             `json:"id"`
	CompanyID  int             `json:"company_id"`
	CustomerID *int            `json:"customer_id,omitempty"`
	EstimateID *int            `json:"estimate_id,omitempty"`
	Status     InvoiceStatus   `json:"status"`
	Subtotal   Cents           `json:"subtotal"`
	Tax        Cents           `json:"tax"`
	Total      Cents           `json:"total"`
	TaxRate    decimal.Decimal `json:"tax_rate"`
	CreatedAt  time.Time       `json:"created_at"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
	Lines      []PricedLine    `json:"lines"`
}
