package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		docType DocumentType
		from    DocumentStatus
		to      DocumentStatus
		want    bool
	}{
		{"quote draft to sent", DocumentTypeQuote, DocumentStatusDraft, DocumentStatusSent, true},
		{"quote sent to paid", DocumentTypeQuote, DocumentStatusSent, DocumentStatusPaid, false},
		{"invoice sent to paid", DocumentTypeInvoice, DocumentStatusSent, DocumentStatusPaid, true},
		{"invoice accepted to paid", DocumentTypeInvoice, DocumentStatusAccepted, DocumentStatusPaid, true},
		{"credit note accepted to paid", DocumentTypeCreditNote, DocumentStatusAccepted, DocumentStatusPaid, false},
		{"draft to accepted skips sent", DocumentTypeQuote, DocumentStatusDraft, DocumentStatusAccepted, false},
		{"draft to cancelled", DocumentTypeInvoice, DocumentStatusDraft, DocumentStatusCancelled, true},
		{"accepted to cancelled", DocumentTypeQuote, DocumentStatusAccepted, DocumentStatusCancelled, true},
		{"accepted to rejected", DocumentTypeQuote, DocumentStatusAccepted, DocumentStatusRejected, false},
		{"paid is terminal", DocumentTypeInvoice, DocumentStatusPaid, DocumentStatusCancelled, false},
		{"rejected is terminal", DocumentTypeQuote, DocumentStatusRejected, DocumentStatusSent, false},
		{"cancelled is terminal", DocumentTypeQuote, DocumentStatusCancelled, DocumentStatusDraft, false},
		{"self transition", DocumentTypeQuote, DocumentStatusSent, DocumentStatusSent, false},
		{"unknown source", DocumentTypeQuote, DocumentStatus("archived"), DocumentStatusSent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.docType, tt.from, tt.to))
		})
	}
}

func TestTransitionTableIsClosed(t *testing.T) {
	for from, targets := range DocumentTransitions {
		assert.True(t, from.IsValid())
		for _, to := range targets {
			assert.True(t, to.IsValid(), "%s -> %s", from, to)
		}
	}
	assert.True(t, DocumentStatusPaid.IsTerminal())
	assert.True(t, DocumentStatusRejected.IsTerminal())
	assert.True(t, DocumentStatusCancelled.IsTerminal())
	assert.False(t, DocumentStatusAccepted.IsTerminal())
}

func TestAllowedTransitions(t *testing.T) {
	assert.Equal(t,
		[]DocumentStatus{DocumentStatusAccepted, DocumentStatusRejected, DocumentStatusCancelled},
		AllowedTransitions(DocumentTypeQuote, DocumentStatusSent))
	assert.Equal(t,
		[]DocumentStatus{DocumentStatusAccepted, DocumentStatusRejected, DocumentStatusPaid, DocumentStatusCancelled},
		AllowedTransitions(DocumentTypeInvoice, DocumentStatusSent))
	assert.Empty(t, AllowedTransitions(DocumentTypeInvoice, DocumentStatusPaid))
}

func TestDocumentIsMutable(t *testing.T) {
	tests := []struct {
		docType DocumentType
		status  DocumentStatus
		want    bool
	}{
		{DocumentTypeQuote, DocumentStatusDraft, true},
		{DocumentTypeQuote, DocumentStatusSent, true},
		{DocumentTypeQuote, DocumentStatusAccepted, false},
		{DocumentTypeInvoice, DocumentStatusAccepted, true},
		{DocumentTypeInvoice, DocumentStatusPaid, false},
		{DocumentTypeCreditNote, DocumentStatusCancelled, false},
		{DocumentTypeQuote, DocumentStatusRejected, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.docType)+"/"+string(tt.status), func(t *testing.T) {
			d := &Document{Type: tt.docType, Status: tt.status}
			assert.Equal(t, tt.want, d.IsMutable())
		})
	}
}

func TestFormatDocumentNumber(t *testing.T) {
	assert.Equal(t, "DEV-2025-001", FormatDocumentNumber(DocumentTypeQuote, 2025, 1))
	assert.Equal(t, "FACT-2025-042", FormatDocumentNumber(DocumentTypeInvoice, 2025, 42))
	assert.Equal(t, "AV-2026-1234", FormatDocumentNumber(DocumentTypeCreditNote, 2026, 1234))
	assert.Equal(t, "document:invoice:2025", DocumentSequenceName(DocumentTypeInvoice, 2025))
}

func TestDocumentIsUnpaidAt(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&Document{Type: DocumentTypeInvoice, Status: DocumentStatusSent, DueDate: &past}).IsUnpaidAt(now))
	assert.False(t, (&Document{Type: DocumentTypeInvoice, Status: DocumentStatusSent, DueDate: &future}).IsUnpaidAt(now))
	assert.False(t, (&Document{Type: DocumentTypeInvoice, Status: DocumentStatusPaid, DueDate: &past}).IsUnpaidAt(now))
	assert.False(t, (&Document{Type: DocumentTypeQuote, Status: DocumentStatusSent, DueDate: &past}).IsUnpaidAt(now))
	assert.False(t, (&Document{Type: DocumentTypeInvoice, Status: DocumentStatusSent}).IsUnpaidAt(now))
}

func TestAggregateSignatureStatus(t *testing.T) {
	req := func(s SignatureStatus) *SignatureRequest { return &SignatureRequest{Status: s} }

	assert.Equal(t, SignatureAggregateNone, AggregateSignatureStatus(nil))
	assert.Equal(t, SignatureAggregateNone, AggregateSignatureStatus([]*SignatureRequest{req(SignatureStatusDeclined)}))
	assert.Equal(t, SignatureAggregatePending, AggregateSignatureStatus([]*SignatureRequest{req(SignatureStatusDeclined), req(SignatureStatusPending)}))
	assert.Equal(t, SignatureAggregateSigned, AggregateSignatureStatus([]*SignatureRequest{req(SignatureStatusPending), req(SignatureStatusSigned)}))
}
