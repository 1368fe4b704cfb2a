// Package sequence allocates gapless, monotonic fiscal document numbers.
// Allocation is a single atomic increment at the storage boundary; a
// caller that fails after allocating simply burns the number, which is
// the audit-safe direction for a gap to appear.
package sequence

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jrivasm/contably/internal/errs"
	"github.com/jrivasm/contably/internal/ledger"
)

// Store performs the atomic increment for a (company, type) counter,
// creating the row with the given defaults on first use. Two concurrent
// calls must never observe the same value.
type Store interface {
	IncrementSequence(ctx context.Context, companyID uuid.UUID, seqType ledger.SequenceType, defaults ledger.FiscalSequence) (ledger.FiscalSequence, error)
}

// Service formats allocated numbers with their configured prefixes.
type Service interface {
	Next(ctx context.Context, companyID uuid.UUID, seqType ledger.SequenceType) (ledger.SequenceNumber, error)
}

type service struct {
	store Store
}

func New(store Store) Service { return &service{store: store} }

// padWidth is the zero-padded width of formatted document numbers.
const padWidth = 8

// defaultPrefix returns the document-number prefix used when a company
// has not configured its own.
func defaultPrefix(t ledger.SequenceType) string {
	switch t {
	case ledger.SequenceCreditNote:
		return "NC-"
	case ledger.SequenceDebitNote:
		return "ND-"
	default:
		return "INV-"
	}
}

func (s *service) Next(ctx context.Context, companyID uuid.UUID, seqType ledger.SequenceType) (ledger.SequenceNumber, error) {
	if companyID == uuid.Nil {
		return ledger.SequenceNumber{}, errs.ErrInvalid
	}
	if !seqType.Valid() {
		return ledger.SequenceNumber{}, errs.ErrInvalid
	}
	defaults := ledger.FiscalSequence{
		CompanyID:     companyID,
		Type:          seqType,
		Prefix:        defaultPrefix(seqType),
		ControlPrefix: "00-",
	}
	seq, err := s.store.IncrementSequence(ctx, companyID, seqType, defaults)
	if err != nil {
		return ledger.SequenceNumber{}, err
	}
	return ledger.SequenceNumber{
		Number:        Format(seq.Prefix, seq.Current),
		ControlNumber: Format(seq.ControlPrefix, seq.ControlCurrent),
		Value:         seq.Current,
	}, nil
}

// Format renders a counter value as prefix + zero-padded number.
func Format(prefix string, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, padWidth, n)
}
