package shell

import (
	"fmt"
	"text/tabwriter"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
	"github.com/vladislavdragonenkov/farmstand/internal/storefront"
)

const helpText = `Storefront:
  stock                         show products and availability
  add <product> <quantity>      add a product to the cart
  remove <product>              remove a product from the cart
  cart                          show the cart
  clear                         empty the cart
  submit <your name>            send the order
  refresh                       reload the stock now
  history [count]               last order submissions
Staff:
  admin login <password>        open an admin session
  admin stock                   list the stock with indexes
  admin add <name> <qty> <price> <unit>
  admin delete <index>          delete a stock item
  admin orders                  orders to prepare, grouped by customer
  admin prepare <index|customer>
  admin logout
  watch                         refresh orders to prepare until Enter
Other:
  help, quit
Names with spaces can be quoted: add "Pommes de terre" 2
`

func (s *Shell) printHelp() {
	fmt.Fprint(s.out, helpText)
}

func (s *Shell) printResult(kind storefront.CommandKind, r storefront.Result) {
	for _, n := range r.Notices {
		if n.Kind == storefront.ResultError {
			s.printf("! %s\n", n.Message)
		} else {
			s.printf("* %s\n", n.Message)
		}
	}

	if r.Stock != nil && len(r.Stock.Rows) > 0 && (kind == storefront.CommandStock || kind == storefront.CommandRefresh) {
		s.printStock(r.Stock)
	}
	if kind == storefront.CommandCart && !r.Cart.Empty() {
		s.printCart(r.Cart)
	}
	if len(r.History) > 0 {
		s.printHistory(r.History)
	}

	switch {
	case r.Message == "":
	case r.Kind == storefront.ResultError:
		s.printf("Error: %s\n", r.Message)
	default:
		s.printf("%s\n", r.Message)
	}
}

func (s *Shell) printStock(view *storefront.StockView) {
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tPRICE\tSTOCK\tSTATUS")
	for _, row := range view.Rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", row.Name, s.formatter.PerUnit(row.PricePerUnit, row.Unit), row.Quantity, levelText(row.Level))
	}
	_ = w.Flush()
}

func (s *Shell) printCart(view *storefront.CartView) {
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tQUANTITY\tPRICE\tTOTAL")
	for _, row := range view.Rows {
		fmt.Fprintf(w, "%s\t%d %s\t%s\t%s\n", row.Product, row.Quantity, row.Unit,
			s.formatter.PerUnit(row.PricePerUnit, row.Unit), s.formatter.Format(row.LineTotal))
	}
	fmt.Fprintf(w, "\t\tTotal\t%s\n", s.formatter.Format(view.Total))
	_ = w.Flush()
}

func (s *Shell) printHistory(records []domain.SubmissionRecord) {
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCUSTOMER\tTOTAL\tOUTCOME\tKEY")
	for _, record := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			record.CreatedAt.Local().Format("2006-01-02 15:04"), record.Customer,
			s.formatter.Format(record.Total), record.Outcome, record.IdempotencyKey)
	}
	_ = w.Flush()
}

func (s *Shell) printAdminStock(items []domain.StockItem) {
	if len(items) == 0 {
		s.printf("The stock is empty\n")
		return
	}
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPRODUCT\tPRICE\tSTOCK")
	for i, item := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", i, item.Name, s.formatter.PerUnit(item.PricePerUnit, item.Unit), item.QuantityAvailable)
	}
	_ = w.Flush()
}

func (s *Shell) printOrders(groups []domain.CustomerOrders) {
	if len(groups) == 0 {
		s.printf("No orders to prepare\n")
		return
	}
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	for _, group := range groups {
		state := "To prepare"
		if group.Prepared() {
			state = "Prepared"
		}
		fmt.Fprintf(w, "%s\t\t\t%s\t%s\n", group.Customer, s.formatter.Format(group.Total), state)
		for _, order := range group.Orders {
			fmt.Fprintf(w, "  #%d\t%s\t%d %s\t%s\t%s\n", order.Index, order.Product, order.Quantity, order.Unit,
				s.formatter.Format(order.LineTotal()), order.Status)
		}
	}
	_ = w.Flush()
}

func (s *Shell) onOrdersUpdate(groups []domain.CustomerOrders, err error) {
	if err != nil {
		if !domain.IsAuthError(err) {
			s.printf("Error: %s\n", adminErrorMessage(err))
		}
		return
	}
	s.printf("-- orders to prepare --\n")
	s.printOrders(groups)
}

func levelText(level domain.StockLevel) string {
	switch level {
	case domain.StockLevelOutOfStock:
		return "Out of stock"
	case domain.StockLevelLimited:
		return "Limited"
	default:
		return "Available"
	}
}
