package orders

import (
	"context"
	"errors"
	"testing"

	"qrmenu-backend/internal/audit"
	"qrmenu-backend/internal/database"
	"qrmenu-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	restaurant models.Restaurant
	table      models.Table
	paneer     models.MenuItem
	naan       models.MenuItem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	return newFixtureOn(t, db)
}

func newFixtureOn(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	f := &fixture{db: db}
	f.restaurant = models.Restaurant{Name: "Blue Orchid", Slug: "blue-orchid-" + uuid.NewString()[:8]}
	mustCreate(t, db, &f.restaurant)

	f.table = models.Table{RestaurantID: f.restaurant.ID, TableNumber: "5", Status: models.TableBlank}
	mustCreate(t, db, &f.table)

	f.paneer = models.MenuItem{RestaurantID: f.restaurant.ID, Name: "Paneer Tikka", Price: 250, Quantity: 10, LowStockThreshold: 2}
	f.naan = models.MenuItem{RestaurantID: f.restaurant.ID, Name: "Butter Naan", Price: 40, Quantity: 100, LowStockThreshold: 10}
	mustCreate(t, db, &f.paneer)
	mustCreate(t, db, &f.naan)
	return f
}

func mustCreate(t *testing.T, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

func (f *fixture) place(t *testing.T, in PlaceInput) *models.Order {
	t.Helper()
	if in.RestaurantID == "" {
		in.RestaurantID = f.restaurant.ID
	}
	o, err := Place(context.Background(), f.db, in)
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	return o
}

func (f *fixture) reload(t *testing.T, v any, id string) {
	t.Helper()
	if err := f.db.First(v, "id = ?", id).Error; err != nil {
		t.Fatalf("reload %T: %v", v, err)
	}
}

func price(v float64) *float64 { return &v }

func TestPlaceCustomerOrder(t *testing.T) {
	f := newFixture(t)

	o := f.place(t, PlaceInput{
		Table: "5",
		Items: []ItemInput{
			{MenuItemID: f.paneer.ID, Quantity: 2, Price: price(1)},
			{MenuItemID: f.naan.ID, Quantity: 1},
		},
		CustomerName:   "Asha",
		CustomerMobile: "9800000000",
		Actor:          audit.Customer,
	})

	if o.Token != 1 || o.BillNumber != 1 {
		t.Fatalf("expected token/bill 1/1, got %d/%d", o.Token, o.BillNumber)
	}
	if o.Status != models.OrderPending || o.Source != models.SourceCustomer {
		t.Fatalf("unexpected status/source %s/%s", o.Status, o.Source)
	}
	if o.Items[0].Price != 250 {
		t.Fatalf("guest price override must be ignored, got %v", o.Items[0].Price)
	}
	if o.Subtotal != 540 || o.TotalAmount != 540 {
		t.Fatalf("unexpected totals %+v", o)
	}
	if o.TableID == nil || *o.TableID != f.table.ID || o.TableNumber != "5" {
		t.Fatalf("order not bound to table: %+v", o)
	}

	var table models.Table
	f.reload(t, &table, f.table.ID)
	if table.Status != models.TableRunning || table.CurrentOrderID == nil || *table.CurrentOrderID != o.ID {
		t.Fatalf("table not running with current order: %+v", table)
	}
	if table.CustomerName != "Asha" {
		t.Fatalf("customer not copied to table: %q", table.CustomerName)
	}

	var paneer models.MenuItem
	f.reload(t, &paneer, f.paneer.ID)
	if paneer.Quantity != 8 {
		t.Fatalf("expected stock 8, got %d", paneer.Quantity)
	}

	var logs int64
	f.db.Model(&models.AuditLog{}).Where("entity_id = ?", o.ID).Count(&logs)
	if logs != 1 {
		t.Fatalf("expected one audit entry, got %d", logs)
	}
}

func TestPlaceResolvesTableByID(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, PlaceInput{Table: f.table.ID, Items: []ItemInput{{MenuItemID: f.naan.ID, Quantity: 1}}})
	if o.TableNumber != "5" {
		t.Fatalf("expected table 5, got %q", o.TableNumber)
	}
}

func TestPlaceRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	other := models.Restaurant{Name: "Red Lotus", Slug: "red-lotus"}
	mustCreate(t, f.db, &other)
	foreign := models.MenuItem{RestaurantID: other.ID, Name: "Dal", Price: 100, Quantity: 10}
	mustCreate(t, f.db, &foreign)

	tests := []struct {
		name string
		in   PlaceInput
		want error
	}{
		{"unknown table", PlaceInput{Table: "99", Items: []ItemInput{{MenuItemID: f.naan.ID, Quantity: 1}}}, ErrInvalidTable},
		{"missing table for guest", PlaceInput{Items: []ItemInput{{MenuItemID: f.naan.ID, Quantity: 1}}}, ErrInvalidTable},
		{"no items", PlaceInput{Table: "5"}, ErrEmptyOrder},
		{"zero quantity", PlaceInput{Table: "5", Items: []ItemInput{{MenuItemID: f.naan.ID}}}, ErrInvalidQuantity},
		{"other tenant item", PlaceInput{Table: "5", Items: []ItemInput{{MenuItemID: foreign.ID, Quantity: 1}}}, ErrInvalidItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.RestaurantID = f.restaurant.ID
			if _, err := Place(context.Background(), f.db, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	var count int64
	f.db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("rejected orders must not persist, found %d", count)
	}
}

func TestPlaceStockBoundary(t *testing.T) {
	f := newFixture(t)
	f.db.Model(&models.MenuItem{}).Where("id = ?", f.paneer.ID).Update("quantity", 2)

	_, err := Place(context.Background(), f.db, PlaceInput{
		RestaurantID: f.restaurant.ID,
		Table:        "5",
		Items: []ItemInput{
			{MenuItemID: f.naan.ID, Quantity: 4},
			{MenuItemID: f.paneer.ID, Quantity: 3},
		},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	var naan, paneer models.MenuItem
	f.reload(t, &naan, f.naan.ID)
	f.reload(t, &paneer, f.paneer.ID)
	if naan.Quantity != 100 || paneer.Quantity != 2 {
		t.Fatalf("failed order must not move stock, got naan=%d paneer=%d", naan.Quantity, paneer.Quantity)
	}
	var table models.Table
	f.reload(t, &table, f.table.ID)
	if table.Status != models.TableBlank || table.CurrentOrderID != nil {
		t.Fatalf("failed order must not touch table: %+v", table)
	}

	o := f.place(t, PlaceInput{Table: "5", Items: []ItemInput{{MenuItemID: f.paneer.ID, Quantity: 2}}})
	f.reload(t, &paneer, f.paneer.ID)
	if paneer.Quantity != 0 {
		t.Fatalf("expected stock 0, got %d", paneer.Quantity)
	}
	if o.Token != 1 {
		t.Fatalf("rolled back order must not consume a token, got %d", o.Token)
	}
}

func TestPlaceOnOccupiedTable(t *testing.T) {
	f := newFixture(t)
	first := f.place(t, PlaceInput{Table: "5", Items: []ItemInput{{MenuItemID: f.naan.ID, Quantity: 1}}})

	_, err := Place(context.Background(), f.db, PlaceInput{
		RestaurantID: f.restaurant.ID,
		Table:        "5",
		Items:        []ItemInput{{MenuItemID: f.naan.ID, Quantity: 1}},
	})
	if !errors.Is(err, ErrTableOccupied) {
		t.Fatalf("expected ErrTableOccupied, got %v", err)
	}

	if _, _, err := UpdateStatus(context.Background(), f.db, f.restaurant.ID, first.ID, models.OrderCompleted, audit.Actor{}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	second := f.place(t, PlaceInput{Table: "5", Items: []ItemInput{{MenuItemID: f.naan.ID, Quantity: 1}}})
	if second.Token != 2 {
		t.Fatalf("expected token 2, got %d", second.Token)
	}
}

func TestTokensArePerTenant(t *testing.T) {
	f := newFixture(t)
	other := models.Restaurant{Name: "Red Lotus", Slug: "red-lotus"}
	mustCreate(t, f.db, &other)
	dal := models.MenuItem{RestaurantID: other.ID, Name: "Dal", Price: 100, Quantity: 10}
	mustCreate(t, f.db, &dal)

	f.place(t, PlaceInput{Source: models.SourceCounter, Items: []ItemInput{{MenuItemID: f.naan.ID, Quantity: 1}}})
	f.place(t, PlaceInput{Source: models.SourceCounter, Items: []ItemInput{{MenuItemID: f.naan.ID, Quantity: 1}}})
	o := f.place(t, PlaceInput{RestaurantID: other.ID, Source: models.SourceCounter, Items: []ItemInput{{MenuItemID: dal.ID, Quantity: 1}}})
	if o.Token != 1 || o.BillNumber != 1 {
		t.Fatalf("expected a fresh sequence for another tenant, got %d/%d", o.Token, o.BillNumber)
	}
}

func TestCounterOrderMayOverridePrices(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, PlaceInput{
		Source: models.SourceCounter,
		Items:  []ItemInput{{MenuItemID: f.paneer.ID, Quantity: 1, Price: price(199.999), Name: "Paneer (half)"}},
	})
	if o.Items[0].Price != 200 || o.Items[0].Name != "Paneer (half)" {
		t.Fatalf("unexpected line %+v", o.Items[0])
	}
	if o.TableID != nil {
		t.Fatal("counter order without table must not bind one")
	}
}

func TestTotalsWithGSTAndDiscount(t *testing.T) {
	f := newFixture(t)
	f.db.Model(&models.Table{}).Where("id = ?", f.table.ID).Updates(map[string]any{"gst_enabled": true, "gst_percentage": 5})

	o := f.place(t, PlaceInput{
		Table:          "5",
		Source:         models.SourceCounter,
		DiscountAmount: 40,
		Items: []ItemInput{
			{MenuItemID: f.paneer.ID, Quantity: 1},
			{MenuItemID: f.naan.ID, Quantity: 1},
		},
	})
	if o.Subtotal != 290 || o.DiscountAmount != 40 || o.GSTPercentage != 5 || o.GSTAmount != 12.5 || o.TotalAmount != 262.5 {
		t.Fatalf("unexpected totals: subtotal=%v discount=%v gst%%=%v gst=%v total=%v",
			o.Subtotal, o.DiscountAmount, o.GSTPercentage, o.GSTAmount, o.TotalAmount)
	}
}

func TestComputeTotalsClampsDiscount(t *testing.T) {
	lines := []models.OrderItem{{Price: 10, Quantity: 3}}
	got := computeTotals(lines, 50, 0)
	if got.discount != 30 || got.total != 0 {
		t.Fatalf("unexpected %+v", got)
	}
	got = computeTotals(lines, -5, 18)
	if got.discount != 0 || got.gst != 5.4 || got.total != 35.4 {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestStatusLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.place(t, PlaceInput{Table: "5", CustomerName: "Asha", Items: []ItemInput{{MenuItemID: f.naan.ID, Quantity: 2}}})

	step := func(s models.OrderStatus) (*models.Order, bool, error) {
		return UpdateStatus(ctx, f.db, f.restaurant.ID, o.ID, s, audit.Actor{Kind: "owner", Name: "Owner"})
	}

	if _, changed, err := step(models.OrderPreparing); err != nil || !changed {
		t.Fatalf("pending -> preparing: changed=%v err=%v", changed, err)
	}
	if _, _, err := step(models.OrderPending); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, changed, err := step(models.OrderPreparing); err != nil || changed {
		t.Fatalf("same status must be a no-op: changed=%v err=%v", changed, err)
	}
	if _, _, err := step("cooking"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	got, _, err := step(models.OrderPaid)
	if err != nil {
		t.Fatalf("paid: %v", err)
	}
	if len(got.Items) != 1 {
		t.Fatalf("items not loaded: %+v", got.Items)
	}
	var table models.Table
	f.reload(t, &table, f.table.ID)
	if table.Status != models.TablePaid {
		t.Fatalf("expected table paid, got %s", table.Status)
	}

	if _, _, err := step(models.OrderCompleted); err != nil {
		t.Fatalf("completed: %v", err)
	}
	f.reload(t, &table, f.table.ID)
	if table.Status != models.TableBlank || table.CurrentOrderID != nil || table.CustomerName != "" || table.CustomerMobile != "" {
		t.Fatalf("table not reset: %+v", table)
	}

	if _, _, err := step(models.OrderServed); !errors.Is(err, ErrOrderClosed) {
		t.Fatalf("expected ErrOrderClosed, got %v", err)
	}

	var logs int64
	f.db.Model(&models.AuditLog{}).Where("entity_id = ? AND action = ?", o.ID, models.AuditActionStatus).Count(&logs)
	if logs != 3 {
		t.Fatalf("expected 3 status audit entries, got %d", logs)
	}
}

func TestUpdateStatusIsTenantScoped(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, PlaceInput{Table: "5", Items: []ItemInput{{MenuItemID: f.naan.ID, Quantity: 1}}})

	if _, _, err := UpdateStatus(context.Background(), f.db, "someone-else", o.ID, models.OrderReady, audit.Actor{}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestEditReplacesItemsAndKeepsCapturedPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.place(t, PlaceInput{Table: "5", Items: []ItemInput{{MenuItemID: f.paneer.ID, Quantity: 2}}})

	f.db.Model(&models.MenuItem{}).Where("id = ?", f.paneer.ID).Update("price", 300)

	items := []ItemInput{
		{MenuItemID: f.paneer.ID, Quantity: 3},
		{MenuItemID: f.naan.ID, Quantity: 2},
	}
	discount := 10.0
	edited, err := Edit(ctx, f.db, f.restaurant.ID, o.ID, EditInput{Items: &items, DiscountAmount: &discount})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if edited.Items[0].Price != 250 {
		t.Fatalf("existing dish must keep its captured price, got %v", edited.Items[0].Price)
	}
	if edited.Subtotal != 830 || edited.TotalAmount != 820 {
		t.Fatalf("unexpected totals %v/%v", edited.Subtotal, edited.TotalAmount)
	}

	var paneer, naan models.MenuItem
	f.reload(t, &paneer, f.paneer.ID)
	f.reload(t, &naan, f.naan.ID)
	if paneer.Quantity != 7 || naan.Quantity != 98 {
		t.Fatalf("unexpected stock paneer=%d naan=%d", paneer.Quantity, naan.Quantity)
	}

	tooMany := []ItemInput{{MenuItemID: f.paneer.ID, Quantity: 11}}
	if _, err := Edit(ctx, f.db, f.restaurant.ID, o.ID, EditInput{Items: &tooMany}); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	f.reload(t, &paneer, f.paneer.ID)
	if paneer.Quantity != 7 {
		t.Fatalf("failed edit must not move stock, got %d", paneer.Quantity)
	}

	if _, _, err := UpdateStatus(ctx, f.db, f.restaurant.ID, o.ID, models.OrderCompleted, audit.Actor{}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	note := "late note"
	if _, err := Edit(ctx, f.db, f.restaurant.ID, o.ID, EditInput{Description: &note}); !errors.Is(err, ErrOrderClosed) {
		t.Fatalf("expected ErrOrderClosed, got %v", err)
	}
}

func TestOrderLinesSurviveMenuChanges(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, PlaceInput{Table: "5", Items: []ItemInput{{MenuItemID: f.paneer.ID, Quantity: 1}}})

	f.db.Model(&models.MenuItem{}).Where("id = ?", f.paneer.ID).Updates(map[string]any{"name": "Paneer Tikka Deluxe", "price": 400})

	got, err := Get(context.Background(), f.db, "", o.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Items[0].Name != "Paneer Tikka" || got.Items[0].Price != 250 || got.TotalAmount != 250 {
		t.Fatalf("order lines changed with the menu: %+v", got.Items[0])
	}

	if _, err := Get(context.Background(), f.db, "another-tenant", o.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("scoped lookup must miss, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table2 := models.Table{RestaurantID: f.restaurant.ID, TableNumber: "6", Status: models.TableBlank}
	mustCreate(t, f.db, &table2)

	a := f.place(t, PlaceInput{Table: "5", Items: []ItemInput{{MenuItemID: f.naan.ID, Quantity: 1}}})
	f.place(t, PlaceInput{Table: "6", Items: []ItemInput{{MenuItemID: f.naan.ID, Quantity: 1}}})
	if _, _, err := UpdateStatus(ctx, f.db, f.restaurant.ID, a.ID, models.OrderReady, audit.Actor{}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	all, err := List(ctx, f.db, f.restaurant.ID, Filter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 orders, got %d (%v)", len(all), err)
	}
	ready, _ := List(ctx, f.db, f.restaurant.ID, Filter{Status: models.OrderReady})
	if len(ready) != 1 || ready[0].ID != a.ID {
		t.Fatalf("status filter failed: %+v", ready)
	}
	byTable, _ := List(ctx, f.db, f.restaurant.ID, Filter{TableNumber: "6"})
	if len(byTable) != 1 || byTable[0].TableNumber != "6" {
		t.Fatalf("table filter failed: %+v", byTable)
	}
	byID, _ := List(ctx, f.db, f.restaurant.ID, Filter{TableID: table2.ID})
	if len(byID) != 1 {
		t.Fatalf("table id filter failed: %+v", byID)
	}
	foreign, _ := List(ctx, f.db, "another-tenant", Filter{})
	if len(foreign) != 0 {
		t.Fatalf("listing leaked across tenants: %+v", foreign)
	}
}

func TestUpdateRollsBackEditWhenStatusRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.place(t, PlaceInput{Table: "5", Items: []ItemInput{{MenuItemID: f.naan.ID, Quantity: 1}}})
	if _, _, err := UpdateStatus(ctx, f.db, f.restaurant.ID, o.ID, models.OrderReady, audit.Actor{}); err != nil {
		t.Fatalf("ready: %v", err)
	}

	discount := 30.0
	items := []ItemInput{{MenuItemID: f.naan.ID, Quantity: 5}}
	back := models.OrderPending
	_, _, err := Update(ctx, f.db, f.restaurant.ID, o.ID, EditInput{Items: &items, DiscountAmount: &discount}, &back)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	var got models.Order
	f.reload(t, &got, o.ID)
	if got.DiscountAmount != 0 || got.TotalAmount != 40 || got.Status != models.OrderReady {
		t.Fatalf("edit leaked past the refused status: %+v", got)
	}
	var naan models.MenuItem
	f.reload(t, &naan, f.naan.ID)
	if naan.Quantity != 99 {
		t.Fatalf("stock moved by a rolled back edit: %d", naan.Quantity)
	}

	served := models.OrderServed
	updated, changed, err := Update(ctx, f.db, f.restaurant.ID, o.ID, EditInput{DiscountAmount: &discount}, &served)
	if err != nil || !changed {
		t.Fatalf("edit and serve: changed=%v err=%v", changed, err)
	}
	if updated.DiscountAmount != 30 || updated.TotalAmount != 10 || updated.Status != models.OrderServed || len(updated.Items) != 1 {
		t.Fatalf("unexpected order %+v", updated)
	}
}

func TestPaidLeavesReleasedTableAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.place(t, PlaceInput{Table: "5", Items: []ItemInput{{MenuItemID: f.naan.ID, Quantity: 1}}})

	// staff freed the table by hand while the bill was still open
	f.db.Model(&models.Table{}).Where("id = ?", f.table.ID).Updates(map[string]any{
		"status":           models.TableBlank,
		"current_order_id": nil,
	})

	if _, _, err := UpdateStatus(ctx, f.db, f.restaurant.ID, o.ID, models.OrderPaid, audit.Actor{}); err != nil {
		t.Fatalf("paid: %v", err)
	}
	var table models.Table
	f.reload(t, &table, f.table.ID)
	if table.Status != models.TableBlank {
		t.Fatalf("released table must stay blank, got %s", table.Status)
	}

	if _, _, err := UpdateStatus(ctx, f.db, f.restaurant.ID, o.ID, models.OrderCompleted, audit.Actor{}); err != nil {
		t.Fatalf("completed: %v", err)
	}
	f.reload(t, &table, f.table.ID)
	if table.Status != models.TableBlank || table.CurrentOrderID != nil {
		t.Fatalf("table not blank after completion: %+v", table)
	}
}

func TestClaimTableRefusesStaleView(t *testing.T) {
	f := newFixture(t)
	stale := f.table // read before anyone ordered

	first := f.place(t, PlaceInput{Table: "5", Items: []ItemInput{{MenuItemID: f.naan.ID, Quantity: 1}}})

	err := f.db.Transaction(func(tx *gorm.DB) error {
		return claimTable(tx, &stale, "late-order", "Late", "")
	})
	if !errors.Is(err, ErrTableOccupied) {
		t.Fatalf("expected ErrTableOccupied, got %v", err)
	}

	var table models.Table
	f.reload(t, &table, f.table.ID)
	if table.CurrentOrderID == nil || *table.CurrentOrderID != first.ID || table.CustomerName != "" {
		t.Fatalf("first order lost its table: %+v", table)
	}
}

func TestLinesKeepRequestOrder(t *testing.T) {
	f := newFixture(t)
	items := []ItemInput{{MenuItemID: f.paneer.ID, Quantity: 1}, {MenuItemID: f.naan.ID, Quantity: 2}}
	if f.paneer.ID < f.naan.ID {
		items[0], items[1] = items[1], items[0]
	}

	o := f.place(t, PlaceInput{Source: models.SourceCounter, Items: items})
	got, err := Get(context.Background(), f.db, f.restaurant.ID, o.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for i, it := range items {
		if got.Items[i].MenuItemID != it.MenuItemID || got.Items[i].Quantity != it.Quantity {
			t.Fatalf("line %d out of order: %+v", i, got.Items)
		}
	}
}
