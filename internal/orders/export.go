package orders

import (
	"bytes"
	"fmt"
	"strings"

	"qrmenu-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Orders"

var exportHeader = []string{
	"Bill No", "Token", "Date", "Table", "Customer", "Mobile", "Status",
	"Payment", "Items", "Subtotal", "Discount", "GST %", "GST", "Total",
}

// ExportXLSX renders orders as a spreadsheet with a totals row at the end.
func ExportXLSX(list []models.Order) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeader))
	if err := f.SetCellStyle(exportSheet, "A1", lastCol+"1", bold); err != nil {
		return nil, err
	}

	var subtotal, discount, gst, total float64
	for i, o := range list {
		lines := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			lines = append(lines, fmt.Sprintf("%dx %s", it.Quantity, it.Name))
		}

		row := []any{
			o.BillNumber,
			o.Token,
			o.CreatedAt.Format("2006-01-02 15:04"),
			o.TableNumber,
			o.CustomerName,
			o.CustomerMobile,
			string(o.Status),
			o.PaymentMethod,
			strings.Join(lines, ", "),
			o.Subtotal,
			o.DiscountAmount,
			o.GSTPercentage,
			o.GSTAmount,
			o.TotalAmount,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}

		subtotal += o.Subtotal
		discount += o.DiscountAmount
		gst += o.GSTAmount
		total += o.TotalAmount
	}

	totalsRow := len(list) + 2
	cell, _ := excelize.CoordinatesToCellName(1, totalsRow)
	if err := f.SetCellValue(exportSheet, cell, "Total"); err != nil {
		return nil, err
	}
	sums := []any{round2(subtotal), round2(discount), nil, round2(gst), round2(total)}
	cell, _ = excelize.CoordinatesToCellName(10, totalsRow)
	if err := f.SetSheetRow(exportSheet, cell, &sums); err != nil {
		return nil, err
	}
	end, _ := excelize.CoordinatesToCellName(len(exportHeader), totalsRow)
	start, _ := excelize.CoordinatesToCellName(1, totalsRow)
	if err := f.SetCellStyle(exportSheet, start, end, bold); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}
