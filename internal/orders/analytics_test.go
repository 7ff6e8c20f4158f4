package orders

import (
	"testing"
	"time"

	"qrmenu-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

func TestPeriodRange(t *testing.T) {
	now := time.Date(2024, time.March, 14, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		period, month string
		from, to      string
		label         string
	}{
		{"daily", "", "2024-03-14", "2024-03-15", "daily"},
		{"", "", "2024-03-14", "2024-03-15", "daily"},
		{"weekly", "", "2024-03-08", "2024-03-15", "weekly"},
		{"monthly", "", "2024-03-01", "2024-04-01", "monthly"},
		{"yearly", "", "2024-01-01", "2025-01-01", "yearly"},
		{"daily", "2023-12", "2023-12-01", "2024-01-01", "2023-12"},
	}
	for _, tt := range tests {
		from, to, label, err := PeriodRange(tt.period, tt.month, now)
		if err != nil {
			t.Fatalf("%s/%s: %v", tt.period, tt.month, err)
		}
		if got := from.Format(dateLayout); got != tt.from {
			t.Errorf("%s/%s from = %s, want %s", tt.period, tt.month, got, tt.from)
		}
		if got := to.Format(dateLayout); got != tt.to {
			t.Errorf("%s/%s to = %s, want %s", tt.period, tt.month, got, tt.to)
		}
		if label != tt.label {
			t.Errorf("label = %s, want %s", label, tt.label)
		}
	}

	if from, to, _, err := PeriodRange("all", "", now); err != nil || !from.IsZero() || !to.IsZero() {
		t.Fatalf("all must be unbounded, got %v %v %v", from, to, err)
	}
	if _, _, _, err := PeriodRange("hourly", "", now); err == nil {
		t.Fatal("expected error for unknown period")
	}
	if _, _, _, err := PeriodRange("", "March", now); err == nil {
		t.Fatal("expected error for malformed month")
	}
}

func sampleOrders() []models.Order {
	day1 := time.Date(2024, time.March, 13, 12, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	order := func(status models.OrderStatus, at time.Time, total float64, items ...models.OrderItem) models.Order {
		o := models.Order{Status: status, TotalAmount: total, Items: items}
		o.CreatedAt = at
		return o
	}
	paneer := func(q int) models.OrderItem {
		return models.OrderItem{MenuItemID: "paneer", Name: "Paneer Tikka", Price: 250, Quantity: q}
	}
	naan := func(q int) models.OrderItem {
		return models.OrderItem{MenuItemID: "naan", Name: "Butter Naan", Price: 40, Quantity: q}
	}

	return []models.Order{
		order(models.OrderCompleted, day1, 580, paneer(2), naan(2)),
		order(models.OrderPaid, day2, 290, paneer(1), naan(1)),
		order(models.OrderPending, day2, 400, naan(10)),
		order(models.OrderCompleted, day2, 120, naan(3)),
	}
}

func TestSummarize(t *testing.T) {
	a := Summarize(sampleOrders())

	if a.TotalOrders != 4 || a.CompletedOrders != 2 || a.PaidOrders != 1 || a.OpenOrders != 2 {
		t.Fatalf("unexpected counts %+v", a)
	}
	if a.TotalRevenue != 990 {
		t.Fatalf("pending orders must not count as revenue, got %v", a.TotalRevenue)
	}
	if a.AverageOrderValue != 330 {
		t.Fatalf("unexpected average %v", a.AverageOrderValue)
	}
	if a.CompletionRate != 50 {
		t.Fatalf("unexpected completion rate %v", a.CompletionRate)
	}
	if a.StatusBreakdown["completed"] != 2 || a.StatusBreakdown["pending"] != 1 {
		t.Fatalf("unexpected breakdown %+v", a.StatusBreakdown)
	}

	if len(a.TopItems) != 2 || a.TopItems[0].MenuItemID != "naan" || a.TopItems[0].Quantity != 6 {
		t.Fatalf("unexpected top items %+v", a.TopItems)
	}
	if a.TopItems[1].Revenue != 750 {
		t.Fatalf("unexpected paneer revenue %v", a.TopItems[1].Revenue)
	}

	if len(a.DailyBreakdown) != 2 {
		t.Fatalf("expected 2 days, got %+v", a.DailyBreakdown)
	}
	if d := a.DailyBreakdown[0]; d.Date != "2024-03-13" || d.Orders != 1 || d.Revenue != 580 {
		t.Fatalf("unexpected first day %+v", d)
	}
	if d := a.DailyBreakdown[1]; d.Orders != 3 || d.Revenue != 410 {
		t.Fatalf("unexpected second day %+v", d)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	a := Summarize(nil)
	if a.TotalOrders != 0 || a.CompletionRate != 0 || a.AverageOrderValue != 0 {
		t.Fatalf("unexpected %+v", a)
	}
	if a.TopItems == nil || a.DailyBreakdown == nil {
		t.Fatal("empty slices must encode as [] not null")
	}
}

func TestExportXLSX(t *testing.T) {
	list := sampleOrders()
	list[0].BillNumber = 7
	list[0].TableNumber = "5"
	list[0].Subtotal = 580

	buf, err := ExportXLSX(list)
	if err != nil {
		t.Fatalf("ExportXLSX: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != len(list)+2 {
		t.Fatalf("expected header, %d orders and totals, got %d rows", len(list), len(rows))
	}
	if rows[0][0] != "Bill No" || rows[1][0] != "7" || rows[1][3] != "5" {
		t.Fatalf("unexpected first rows %v / %v", rows[0], rows[1])
	}
	if rows[1][8] != "2x Paneer Tikka, 2x Butter Naan" {
		t.Fatalf("unexpected items cell %q", rows[1][8])
	}

	total, err := f.GetCellValue(exportSheet, "N6")
	if err != nil || total != "1390" {
		t.Fatalf("unexpected grand total %q (%v)", total, err)
	}
}
