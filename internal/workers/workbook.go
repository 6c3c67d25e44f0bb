// internal/workers/workbook.go
package workers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/stockledger/internal/core/domain"
)

// XLSXContentType is the media type of generated workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const moneyFormat = "#,##0.00"

var salesExportHeader = []string{
	"Sale ID", "Date", "Cashier", "Payment Method",
	"Product", "Unit", "Unit Price", "Quantity", "Subtotal",
}

// BuildSalesWorkbook renders export rows as a single sheet workbook with a
// totals row
func BuildSalesWorkbook(r domain.DateRange, rows []domain.SaleExportRow) ([]byte, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sales " + r.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, title := range salesExportHeader {
		cell := header.AddCell()
		cell.SetString(title)
		cell.GetStyle().Font.Bold = true
	}

	var (
		quantity int64
		revenue  = decimal.Zero
	)
	for _, row := range rows {
		rec := sheet.AddRow()
		rec.AddCell().SetString(row.SaleID.String())
		rec.AddCell().SetDateTime(row.CreatedAt.In(locationOrUTC(r)))
		rec.AddCell().SetString(row.CashierName)
		rec.AddCell().SetString(string(row.PaymentMethod))
		rec.AddCell().SetString(row.ProductName)
		rec.AddCell().SetString(row.UnitOfMeasure)
		rec.AddCell().SetFloatWithFormat(row.UnitPrice.InexactFloat64(), moneyFormat)
		rec.AddCell().SetInt(row.Quantity)
		rec.AddCell().SetFloatWithFormat(row.Subtotal.InexactFloat64(), moneyFormat)

		quantity += int64(row.Quantity)
		revenue = revenue.Add(row.Subtotal)
	}

	totals := sheet.AddRow()
	totals.AddCell().SetString("Total")
	for i := 0; i < 6; i++ {
		totals.AddCell()
	}
	totals.AddCell().SetInt64(quantity)
	totals.AddCell().SetFloatWithFormat(revenue.InexactFloat64(), moneyFormat)

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func locationOrUTC(r domain.DateRange) *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}
