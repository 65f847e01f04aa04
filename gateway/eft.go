package gateway

import (
	"os"
	"sync"

	"gorm.io/gorm"

	"github.com/cgartco6/apex-studio-platform/db"
)

// Direct EFT has no gateway at all: the client transfers money to the studio
// bank account and we match the statement line by a unique cent-adjusted
// amount reserved per pending payment.

var (
	eftRefs   = NewReferenceSet()
	eftRefsMu sync.Mutex
	eftByRef  = make(map[int64]uint) // reference amount -> payment ID
)

type EFTInstruction struct {
	BankAccount     string `json:"bank_account"`
	ReferenceAmount int64  `json:"reference_amount"` // cents; must be transferred exactly
	Reference       string `json:"reference"`        // payment reference for the transfer
}

// ReserveEFTAmount picks the unique amount the client must transfer for this
// payment and records the mapping for later statement matching.
func ReserveEFTAmount(paymentID uint, total int64) int64 {
	eftRefsMu.Lock()
	defer eftRefsMu.Unlock()

	ref := eftRefs.NextFree(total)
	eftRefs.Reserve(ref)
	eftByRef[ref] = paymentID
	return ref
}

// SettleEFTAmount resolves a statement amount to its payment and frees the
// reservation. ok is false when no pending payment matches.
func SettleEFTAmount(amount int64) (paymentID uint, ok bool) {
	eftRefsMu.Lock()
	defer eftRefsMu.Unlock()

	paymentID, ok = eftByRef[amount]
	if !ok {
		return 0, false
	}
	delete(eftByRef, amount)
	eftRefs.Release(amount)
	return paymentID, true
}

// RestoreEFTReservations rebuilds the in-memory reservation state from
// payments that were still awaiting a transfer when the process last stopped.
// Without this pass a restart could hand out an amount twice and orphan
// pre-restart transfers.
func RestoreEFTReservations(gdb *gorm.DB) error {
	var pending []db.Payment
	if err := gdb.
		Where("gateway = ? AND status IN ? AND reference_amount > 0",
			"direct-eft", []string{db.PaymentPending, db.PaymentProcessing}).
		Find(&pending).Error; err != nil {
		return err
	}

	eftRefsMu.Lock()
	defer eftRefsMu.Unlock()
	for _, p := range pending {
		eftRefs.Reserve(p.ReferenceAmount)
		eftByRef[p.ReferenceAmount] = p.ID
	}
	return nil
}

// ReleaseEFTAmount frees a reservation for an expired or cancelled payment.
func ReleaseEFTAmount(amount int64) {
	eftRefsMu.Lock()
	defer eftRefsMu.Unlock()

	delete(eftByRef, amount)
	eftRefs.Release(amount)
}

// EFTInstructionFor builds the transfer instructions returned to the client.
func EFTInstructionFor(orderNumber string, referenceAmount int64) EFTInstruction {
	return EFTInstruction{
		BankAccount:     os.Getenv("EFT_BANK_ACCOUNT"),
		ReferenceAmount: referenceAmount,
		Reference:       "APEX-" + orderNumber,
	}
}
