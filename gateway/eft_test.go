package gateway_test

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cgartco6/apex-studio-platform/db"
	"github.com/cgartco6/apex-studio-platform/gateway"
)

func TestRestoreEFTReservations(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal("open sqlite:", err)
	}
	if err := gdb.AutoMigrate(&db.Payment{}); err != nil {
		t.Fatal("migrate:", err)
	}

	// two payments awaiting a transfer, one already settled
	rows := []db.Payment{
		{Gateway: "direct-eft", Status: db.PaymentPending, Amount: 123400, ReferenceAmount: 123457},
		{Gateway: "direct-eft", Status: db.PaymentProcessing, Amount: 123400, ReferenceAmount: 123458},
		{Gateway: "direct-eft", Status: db.PaymentCompleted, Amount: 123400, ReferenceAmount: 123459},
	}
	for i := range rows {
		if err := gdb.Create(&rows[i]).Error; err != nil {
			t.Fatal(err)
		}
	}

	if err := gateway.RestoreEFTReservations(gdb); err != nil {
		t.Fatal(err)
	}
	defer gateway.ReleaseEFTAmount(123458)

	// a pre-restart transfer still matches its payment
	paymentID, ok := gateway.SettleEFTAmount(123457)
	if !ok {
		t.Fatal("Expected the restored reservation to settle")
	}
	if paymentID != rows[0].ID {
		t.Error("Expected payment", rows[0].ID, "got", paymentID)
	}

	// a new order cannot be handed an amount still reserved for an old one
	ref := gateway.ReserveEFTAmount(99, 123458)
	defer gateway.ReleaseEFTAmount(ref)
	if ref == 123458 {
		t.Error("Expected the restored amount to stay reserved, got it handed out again")
	}

	// settled payments are not restored
	if _, ok := gateway.SettleEFTAmount(123459); ok {
		t.Error("Expected no reservation for an already-completed payment")
	}
}
