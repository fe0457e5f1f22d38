package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/farmstand/internal/client"
	"github.com/vladislavdragonenkov/farmstand/internal/domain"
	"github.com/vladislavdragonenkov/farmstand/internal/mockapi"
)

func TestClientAgainstMockBackend(t *testing.T) {
	backend := mockapi.New(mockapi.WithPassword("pw"))
	srv := httptest.NewServer(backend.Handler())
	defer srv.Close()

	ctx := context.Background()
	c := client.New(srv.URL)

	items, err := c.FetchStock(ctx)
	require.NoError(t, err)
	require.Len(t, items, 4)
	require.Equal(t, "Tomate", items[0].Name)

	sub, err := domain.NewOrderSubmission("Alice", []domain.CartLine{{
		ProductName:  items[0].Name,
		Quantity:     3,
		PricePerUnit: items[0].PricePerUnit,
		Unit:         items[0].Unit,
	}})
	require.NoError(t, err)

	backend.FailNextOrders(1, true)
	err = c.SubmitOrder(ctx, "retry-key", sub)
	require.True(t, errors.Is(err, domain.ErrRejected), "got %v", err)
	require.NoError(t, c.SubmitOrder(ctx, "retry-key", sub))
	require.Equal(t, 1, backend.OrderCount())

	_, err = c.Login(ctx, "wrong")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	token, err := c.Login(ctx, "pw")
	require.NoError(t, err)
	require.NoError(t, c.Verify(ctx, token))

	orders, err := c.ListOrdersToPrepare(ctx, token)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, 3, orders[0].Quantity)
	require.Equal(t, domain.OrderStatusToPrepare, orders[0].Status)

	require.NoError(t, c.MarkPrepared(ctx, token, 0))
	require.NoError(t, c.Logout(ctx, token))
	require.ErrorIs(t, c.Verify(ctx, token), domain.ErrUnauthorized)
}
