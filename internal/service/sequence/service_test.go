package sequence

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/jrivasm/contably/internal/errs"
	"github.com/jrivasm/contably/internal/ledger"
	"github.com/jrivasm/contably/internal/storage/memory"
)

func TestNext_MonotonicFormattedNumbers(t *testing.T) {
	store := memory.New()
	svc := New(store)
	companyID := uuid.New()

	first, err := svc.Next(context.Background(), companyID, ledger.SequenceInvoice)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if first.Number != "INV-00000001" {
		t.Fatalf("first number %q, want INV-00000001", first.Number)
	}
	if first.ControlNumber != "00-00000001" {
		t.Fatalf("first control %q, want 00-00000001", first.ControlNumber)
	}

	second, err := svc.Next(context.Background(), companyID, ledger.SequenceInvoice)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if second.Number != "INV-00000002" || second.Value != first.Value+1 {
		t.Fatalf("second allocation %+v does not follow %+v", second, first)
	}

	// Each type and company counts independently.
	note, err := svc.Next(context.Background(), companyID, ledger.SequenceCreditNote)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if note.Number != "NC-00000001" {
		t.Fatalf("credit note number %q, want NC-00000001", note.Number)
	}
	other, err := svc.Next(context.Background(), uuid.New(), ledger.SequenceInvoice)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if other.Number != "INV-00000001" {
		t.Fatalf("other company number %q, want INV-00000001", other.Number)
	}
}

func TestNext_InvalidInput(t *testing.T) {
	svc := New(memory.New())

	if _, err := svc.Next(context.Background(), uuid.Nil, ledger.SequenceInvoice); err != errs.ErrInvalid {
		t.Fatalf("expected ErrInvalid for nil company, got %v", err)
	}
	if _, err := svc.Next(context.Background(), uuid.New(), ledger.SequenceType("receipt")); err != errs.ErrInvalid {
		t.Fatalf("expected ErrInvalid for unknown type, got %v", err)
	}
}

func TestNext_ConcurrentAllocationsAreUnique(t *testing.T) {
	store := memory.New()
	svc := New(store)
	companyID := uuid.New()

	const n = 50
	results := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := svc.Next(context.Background(), companyID, ledger.SequenceInvoice)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			results <- num.Number
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool, n)
	for num := range results {
		if seen[num] {
			t.Fatalf("number %s allocated twice", num)
		}
		seen[num] = true
	}
	if len(seen) != n {
		t.Fatalf("allocated %d unique numbers, want %d", len(seen), n)
	}
}

func TestFormat(t *testing.T) {
	if got := Format("INV-", 42); got != "INV-00000042" {
		t.Fatalf("Format = %q", got)
	}
	if got := Format("00-", 123456789); got != "00-123456789" {
		t.Fatalf("Format overflow = %q", got)
	}
}
