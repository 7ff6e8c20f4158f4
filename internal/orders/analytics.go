package orders

import (
	"fmt"
	"sort"
	"time"

	"qrmenu-backend/internal/models"
)

type TopItem struct {
	MenuItemID string  `json:"menuItemId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Revenue    float64 `json:"revenue"`
}

type DailyPoint struct {
	Date    string  `json:"date"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type Analytics struct {
	Period            string         `json:"period"` // daily | weekly | monthly | yearly | all | YYYY-MM
	From              string         `json:"from,omitempty"`
	To                string         `json:"to,omitempty"`
	TotalOrders       int            `json:"totalOrders"`
	CompletedOrders   int            `json:"completedOrders"`
	PaidOrders        int            `json:"paidOrders"`
	OpenOrders        int            `json:"openOrders"`
	TotalRevenue      float64        `json:"totalRevenue"`
	AverageOrderValue float64        `json:"averageOrderValue"`
	CompletionRate    float64        `json:"completionRate"`
	StatusBreakdown   map[string]int `json:"statusBreakdown"`
	TopItems          []TopItem      `json:"topItems"`
	DailyBreakdown    []DailyPoint   `json:"dailyBreakdown"`
}

const topItemsLimit = 5

// PeriodRange resolves a reporting window. month (YYYY-MM) wins over
// period. "all" returns zero times, meaning no bound.
func PeriodRange(period, month string, now time.Time) (from, to time.Time, label string, err error) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	if month != "" {
		start, err := time.ParseInLocation("2006-01", month, loc)
		if err != nil {
			return time.Time{}, time.Time{}, "", fmt.Errorf("month must be YYYY-MM")
		}
		return start, start.AddDate(0, 1, 0), month, nil
	}

	switch period {
	case "", "daily":
		return today, today.AddDate(0, 0, 1), "daily", nil
	case "weekly":
		// last seven days including today
		return today.AddDate(0, 0, -6), today.AddDate(0, 0, 1), "weekly", nil
	case "monthly":
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0), "monthly", nil
	case "yearly":
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0), "yearly", nil
	case "all":
		return time.Time{}, time.Time{}, "all", nil
	}
	return time.Time{}, time.Time{}, "", fmt.Errorf("unknown period %q", period)
}

// earning reports whether an order's total counts as revenue.
func earning(s models.OrderStatus) bool {
	return s == models.OrderPaid || s == models.OrderCompleted
}

// Summarize aggregates a window of orders. Revenue and item sales only
// count paid or completed orders.
func Summarize(list []models.Order) Analytics {
	a := Analytics{
		TotalOrders:     len(list),
		StatusBreakdown: map[string]int{},
		TopItems:        []TopItem{},
		DailyBreakdown:  []DailyPoint{},
	}

	items := map[string]*TopItem{}
	days := map[string]*DailyPoint{}
	var earningOrders int

	for _, o := range list {
		a.StatusBreakdown[string(o.Status)]++
		switch o.Status {
		case models.OrderCompleted:
			a.CompletedOrders++
		case models.OrderPaid:
			a.PaidOrders++
		}
		if o.Status.Open() {
			a.OpenOrders++
		}

		day := o.CreatedAt.Format(dateLayout)
		point, ok := days[day]
		if !ok {
			point = &DailyPoint{Date: day}
			days[day] = point
		}
		point.Orders++

		if !earning(o.Status) {
			continue
		}
		earningOrders++
		a.TotalRevenue += o.TotalAmount
		point.Revenue += o.TotalAmount

		for _, it := range o.Items {
			ti, ok := items[it.MenuItemID]
			if !ok {
				ti = &TopItem{MenuItemID: it.MenuItemID, Name: it.Name}
				items[it.MenuItemID] = ti
			}
			ti.Quantity += it.Quantity
			ti.Revenue += it.Price * float64(it.Quantity)
		}
	}

	a.TotalRevenue = round2(a.TotalRevenue)
	if earningOrders > 0 {
		a.AverageOrderValue = round2(a.TotalRevenue / float64(earningOrders))
	}
	if a.TotalOrders > 0 {
		a.CompletionRate = round2(float64(a.CompletedOrders) * 100 / float64(a.TotalOrders))
	}

	for _, ti := range items {
		ti.Revenue = round2(ti.Revenue)
		a.TopItems = append(a.TopItems, *ti)
	}
	sort.Slice(a.TopItems, func(i, j int) bool {
		if a.TopItems[i].Quantity != a.TopItems[j].Quantity {
			return a.TopItems[i].Quantity > a.TopItems[j].Quantity
		}
		return a.TopItems[i].Name < a.TopItems[j].Name
	})
	if len(a.TopItems) > topItemsLimit {
		a.TopItems = a.TopItems[:topItemsLimit]
	}

	for _, p := range days {
		p.Revenue = round2(p.Revenue)
		a.DailyBreakdown = append(a.DailyBreakdown, *p)
	}
	sort.Slice(a.DailyBreakdown, func(i, j int) bool {
		return a.DailyBreakdown[i].Date < a.DailyBreakdown[j].Date
	})

	return a
}
