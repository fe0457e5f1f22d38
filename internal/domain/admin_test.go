package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestGroupByCustomer(t *testing.T) {
	orders := []PreparationOrder{
		{Index: 0, Product: "Tomato", Quantity: 2, Price: decimal.RequireFromString("2.50"), Unit: "kg", Customer: "Alice", Status: OrderStatusPrepared},
		{Index: 1, Product: "Leek", Quantity: 1, Price: decimal.RequireFromString("0.90"), Unit: "kg", Customer: "Bob", Status: OrderStatusToPrepare},
		{Index: 2, Product: "Carrot", Quantity: 3, Price: decimal.RequireFromString("1.20"), Unit: "kg", Customer: "Alice", Status: OrderStatusToPrepare},
	}

	groups := GroupByCustomer(orders)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Customer != "Alice" || groups[1].Customer != "Bob" {
		t.Fatalf("groups must follow first appearance, got %s, %s", groups[0].Customer, groups[1].Customer)
	}
	if len(groups[0].Orders) != 2 {
		t.Fatalf("expected 2 lines for Alice, got %d", len(groups[0].Orders))
	}
	if !groups[0].Total.Equal(decimal.RequireFromString("8.60")) {
		t.Fatalf("expected Alice total 8.60, got %s", groups[0].Total)
	}
	if groups[0].Prepared() {
		t.Fatal("Alice still has a line to prepare")
	}
	idx, ok := groups[0].PendingIndex()
	if !ok || idx != 2 {
		t.Fatalf("expected pending index 2, got %d (%v)", idx, ok)
	}
}

func TestCustomerOrdersPrepared(t *testing.T) {
	group := CustomerOrders{Orders: []PreparationOrder{{Index: 4, Status: OrderStatusPrepared}}}
	if !group.Prepared() {
		t.Fatal("expected group to be prepared")
	}
	if _, ok := group.PendingIndex(); ok {
		t.Fatal("prepared group has no pending index")
	}
	if (CustomerOrders{}).Prepared() {
		t.Fatal("empty group is not prepared")
	}
}
