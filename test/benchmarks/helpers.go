// test/benchmarks/helpers.go
package benchmarks

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/stockledger/internal/core/domain"
)

// createLedger builds a product history of n movements cycling through
// receipts, sales and both adjustment directions
func createLedger(productID uuid.UUID, n int) []domain.InventoryTransaction {
	txns := make([]domain.InventoryTransaction, n)
	for i := range txns {
		txn := domain.InventoryTransaction{
			ID:        uuid.New(),
			ProductID: productID,
			Quantity:  i%7 + 1,
			CreatedAt: time.Unix(int64(i), 0),
		}
		switch i % 4 {
		case 0:
			txn.Type = domain.TransactionIn
		case 1:
			txn.Type = domain.TransactionOut
		case 2:
			txn.Type = domain.TransactionAdjustment
			txn.Direction = domain.DirectionIncrease
		default:
			txn.Type = domain.TransactionAdjustment
			txn.Direction = domain.DirectionDecrease
		}
		txns[i] = txn
	}
	return txns
}

// createReceiptWorkbook renders a SKU | Quantity | Notes sheet with a header
func createReceiptWorkbook(lines int) ([]byte, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Delivery")
	if err != nil {
		return nil, err
	}

	header := sheet.AddRow()
	for _, title := range []string{"SKU", "Quantity", "Notes"} {
		header.AddCell().SetString(title)
	}
	for i := 0; i < lines; i++ {
		row := sheet.AddRow()
		row.AddCell().SetString(fmt.Sprintf("SKU-%04d", i))
		row.AddCell().SetInt(i%24 + 1)
		row.AddCell().SetString("pallet " + fmt.Sprint(i/10))
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// createDeliveryNoteText mimics the text layer of a scanned delivery note
func createDeliveryNoteText(lines int) string {
	var b strings.Builder
	b.WriteString("DELIVERY NOTE DN-2026-0117\nSKU QTY NOTES\n")
	for i := 0; i < lines; i++ {
		fmt.Fprintf(&b, "SKU-%04d %d carton %d\n", i, i%24+1, i/10)
	}
	b.WriteString("Total items received\nReceived by: ________\n")
	return b.String()
}

// createExportRows builds one export row per sale line
func createExportRows(n int) []domain.SaleExportRow {
	price := decimal.RequireFromString("12.50")
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	rows := make([]domain.SaleExportRow, n)
	for i := range rows {
		qty := i%5 + 1
		rows[i] = domain.SaleExportRow{
			SaleID:        uuid.New(),
			CreatedAt:     start.Add(time.Duration(i) * time.Minute),
			CashierName:   "Lee Santos",
			PaymentMethod: domain.PaymentCash,
			ProductName:   fmt.Sprintf("Product %d", i%40),
			UnitOfMeasure: "pcs",
			UnitPrice:     price,
			Quantity:      qty,
			Subtotal:      price.Mul(decimal.NewFromInt(int64(qty))),
		}
	}
	return rows
}

// createCart builds a sale request of n distinct lines with matching totals
func createCart(n int) *domain.CommitSaleRequest {
	req := &domain.CommitSaleRequest{
		CashierID:     uuid.New(),
		PaymentMethod: domain.PaymentCard,
	}

	total := decimal.Zero
	for i := 0; i < n; i++ {
		item := domain.CartItem{
			ProductID:     uuid.New(),
			ProductName:   fmt.Sprintf("Product %d", i),
			UnitOfMeasure: "pcs",
			UnitPrice:     decimal.New(int64(150+i), -2),
			Quantity:      i%3 + 1,
		}
		req.Items = append(req.Items, item)
		total = total.Add(item.Subtotal())
	}
	req.TotalAmount = total
	req.CashTendered = total
	req.ChangeAmount = decimal.Zero
	return req
}
