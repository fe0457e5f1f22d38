package shell

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/farmstand/internal/domain"
	"github.com/vladislavdragonenkov/farmstand/internal/metrics"
)

func (s *Shell) admin(ctx context.Context, args []string) {
	if !s.requireConsole() {
		return
	}
	if len(args) == 0 {
		s.usage("admin login|stock|add|delete|orders|prepare|logout")
		return
	}

	action, rest := strings.ToLower(args[0]), args[1:]
	var err error
	switch action {
	case "login":
		err = s.adminLogin(ctx, rest)
	case "logout":
		_ = s.console.Logout(ctx)
		s.printf("Logged out\n")
	case "stock":
		err = s.adminStock(ctx)
	case "add":
		err = s.adminAdd(ctx, rest)
	case "delete", "del":
		err = s.adminDelete(ctx, rest)
	case "orders":
		err = s.adminOrders(ctx)
	case "prepare":
		err = s.adminPrepare(ctx, rest)
	default:
		s.printf("Unknown admin command %q\n", args[0])
		return
	}

	result := resultFor(err)
	if action == "login" && result == metrics.ResultExpired {
		result = metrics.ResultInvalid
	}
	s.metrics.RecordAdminAction(action, result)
	if err != nil {
		s.printf("Error: %s\n", adminErrorMessage(err))
	}
}

func (s *Shell) requireConsole() bool {
	if s.console == nil {
		s.printf("Error: Admin commands are not available in this mode\n")
		return false
	}
	return true
}

func (s *Shell) adminLogin(ctx context.Context, args []string) error {
	if err := s.console.Login(ctx, strings.Join(args, " ")); err != nil {
		return err
	}
	s.printf("Logged in\n")
	return nil
}

func (s *Shell) adminStock(ctx context.Context) error {
	items, err := s.console.Stock(ctx)
	if err != nil {
		return err
	}
	s.printAdminStock(items)
	return nil
}

func (s *Shell) adminAdd(ctx context.Context, args []string) error {
	name, tail, ok := splitTail(args, 3)
	if !ok {
		s.usage("admin add <name> <quantity> <price> <unit>")
		return nil
	}
	qty, err := strconv.Atoi(tail[0])
	if err != nil {
		return domain.ErrStockQuantityInvalid.WithDetail(tail[0])
	}
	price, err := decimal.NewFromString(strings.ReplaceAll(tail[1], ",", "."))
	if err != nil {
		return domain.ErrStockPriceInvalid.WithDetail(tail[1])
	}

	item := domain.StockItem{Name: name, QuantityAvailable: qty, PricePerUnit: price, Unit: tail[2]}
	if err := s.console.AddStock(ctx, item); err != nil {
		return err
	}
	s.printf("%s added to the stock\n", strings.TrimSpace(name))
	return nil
}

func (s *Shell) adminDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		s.usage("admin delete <index>")
		return nil
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return domain.ErrIndexInvalid.WithDetail(args[0])
	}
	if err := s.console.DeleteStock(ctx, index); err != nil {
		return err
	}
	s.printf("Stock item %d deleted\n", index)
	return nil
}

func (s *Shell) adminOrders(ctx context.Context) error {
	groups, err := s.console.OrdersToPrepare(ctx)
	if err != nil {
		return err
	}
	s.printOrders(groups)
	return nil
}

// adminPrepare принимает индекс строки или имя клиента; для клиента отмечается
// первая несобранная строка.
func (s *Shell) adminPrepare(ctx context.Context, args []string) error {
	if len(args) == 0 {
		s.usage("admin prepare <index|customer>")
		return nil
	}

	index, err := strconv.Atoi(args[0])
	if err != nil || len(args) > 1 {
		customer := strings.Join(args, " ")
		groups, listErr := s.console.OrdersToPrepare(ctx)
		if listErr != nil {
			return listErr
		}
		found := false
		for _, group := range groups {
			if !strings.EqualFold(group.Customer, customer) {
				continue
			}
			found = true
			if pending, ok := group.PendingIndex(); ok {
				index = pending
				break
			}
			s.printf("All orders of %s are already prepared\n", group.Customer)
			return nil
		}
		if !found {
			s.printf("No orders for %s\n", customer)
			return nil
		}
	}

	if err := s.console.MarkPrepared(ctx, index); err != nil {
		return err
	}
	s.printf("Order %d marked as prepared\n", index)
	return nil
}

func resultFor(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case domain.IsAuthError(err):
		return metrics.ResultExpired
	case domain.IsValidation(err):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}

func adminErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrPasswordRequired):
		return "Please enter the password"
	case domain.IsAuthError(err):
		return "Session expired or password incorrect, please log in again"
	case errors.Is(err, domain.ErrNetwork):
		return "Connection error, please try again"
	case errors.Is(err, domain.ErrRejected):
		return "The server rejected the request"
	default:
		return err.Error()
	}
}
