package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"auction-engine/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// endedAuction runs an auction to completion with one accepted bid so that
// bidder-1 is the resolved winner at 525.00.
func endedAuction(t *testing.T, f *fixture, id string) *domain.Auction {
	t.Helper()
	f.activeAuction(id)
	_, err := f.bids.PlaceBid(context.Background(), id, "bidder-1", decimal.NewFromInt(525))
	require.NoError(t, err)

	auction, err := f.lifecycle.EndNow(context.Background(), id, "seller-1")
	require.NoError(t, err)
	return auction
}

func TestCreateOrder(t *testing.T) {
	t.Parallel()
	f := newFixture()
	endedAuction(t, f, "auction-1")

	delivery := f.clockNow().Add(72 * time.Hour)
	order, err := f.orders.CreateOrder(context.Background(), "auction-1", "bidder-1", OrderInput{
		DeliveryInstructions: "leave at the warehouse gate",
		DeliveryDate:         &delivery,
	})
	require.NoError(t, err)
	require.Equal(t, "525", order.Amount.String(), "order amount is the final price")
	require.Equal(t, domain.OrderPending, order.Status)
	require.Equal(t, domain.DeliveryScheduled, order.DeliveryStatus)
	require.Equal(t, fmt.Sprintf("ORD-%d-000001", f.clockNow().Year()), order.OrderNumber)

	// Both parties are told about the sale.
	require.NotEmpty(t, f.notes.forUser("seller-1"))
	require.NotEmpty(t, f.notes.forUser("bidder-1"))
}

func TestCreateOrder_SequentialNumbers(t *testing.T) {
	t.Parallel()
	f := newFixture()
	endedAuction(t, f, "auction-1")
	endedAuction(t, f, "auction-2")

	first, err := f.orders.CreateOrder(context.Background(), "auction-1", "bidder-1", OrderInput{})
	require.NoError(t, err)
	second, err := f.orders.CreateOrder(context.Background(), "auction-2", "bidder-1", OrderInput{})
	require.NoError(t, err)

	year := f.clockNow().Year()
	require.Equal(t, fmt.Sprintf("ORD-%d-000001", year), first.OrderNumber)
	require.Equal(t, fmt.Sprintf("ORD-%d-000002", year), second.OrderNumber)
}

func TestCreateOrder_ConcurrentCreationGetsUniqueNumbers(t *testing.T) {
	t.Parallel()
	f := newFixture()

	const auctions = 8
	ids := make([]string, auctions)
	for i := range ids {
		ids[i] = fmt.Sprintf("auction-%d", i+1)
		endedAuction(t, f, ids[i])
	}

	var wg sync.WaitGroup
	results := make([]*domain.Order, auctions)
	errs := make([]error, auctions)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i], errs[i] = f.orders.CreateOrder(context.Background(), id, "bidder-1", OrderInput{})
		}(i, id)
	}
	wg.Wait()

	seen := make(map[string]string, auctions)
	for i, err := range errs {
		require.NoError(t, err, "order for %s", ids[i])
		number := results[i].OrderNumber
		require.NotContains(t, seen, number,
			"number %s assigned to both %s and %s", number, seen[number], ids[i])
		seen[number] = ids[i]
	}
}

func TestCreateOrder_Preconditions(t *testing.T) {
	t.Parallel()

	past := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		seed    func(t *testing.T, f *fixture)
		buyerID string
		in      OrderInput
		wantErr error
	}{
		{
			name:    "auction still active",
			seed:    func(t *testing.T, f *fixture) { f.activeAuction("auction-1") },
			buyerID: "bidder-1",
			wantErr: domain.ErrState,
		},
		{
			name: "auction cancelled",
			seed: func(t *testing.T, f *fixture) {
				f.activeAuction("auction-1")
				_, err := f.lifecycle.Cancel(context.Background(), "auction-1", "seller-1")
				require.NoError(t, err)
			},
			buyerID: "bidder-1",
			wantErr: domain.ErrState,
		},
		{
			name: "ended without winner",
			seed: func(t *testing.T, f *fixture) {
				f.activeAuction("auction-1")
				f.advance(2 * time.Hour)
			},
			buyerID: "bidder-1",
			wantErr: domain.ErrAuthorization,
		},
		{
			name:    "requester is not the winner",
			seed:    func(t *testing.T, f *fixture) { endedAuction(t, f, "auction-1") },
			buyerID: "bidder-2",
			wantErr: domain.ErrAuthorization,
		},
		{
			name:    "delivery date in the past",
			seed:    func(t *testing.T, f *fixture) { endedAuction(t, f, "auction-1") },
			buyerID: "bidder-1",
			in:      OrderInput{DeliveryDate: &past},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "unknown auction",
			seed:    func(t *testing.T, f *fixture) {},
			buyerID: "bidder-1",
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture()
			tc.seed(t, f)

			_, err := f.orders.CreateOrder(context.Background(), "auction-1", tc.buyerID, tc.in)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreateOrder_SecondOrderConflicts(t *testing.T) {
	t.Parallel()
	f := newFixture()
	endedAuction(t, f, "auction-1")

	_, err := f.orders.CreateOrder(context.Background(), "auction-1", "bidder-1", OrderInput{})
	require.NoError(t, err)

	_, err = f.orders.CreateOrder(context.Background(), "auction-1", "bidder-1", OrderInput{})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestGetOrder_Authorization(t *testing.T) {
	t.Parallel()
	f := newFixture()
	endedAuction(t, f, "auction-1")
	order, err := f.orders.CreateOrder(context.Background(), "auction-1", "bidder-1", OrderInput{})
	require.NoError(t, err)

	for _, party := range []string{"bidder-1", "seller-1"} {
		got, err := f.orders.GetOrder(context.Background(), order.ID, party)
		require.NoError(t, err)
		require.Equal(t, order.ID, got.ID)
	}

	_, err = f.orders.GetOrder(context.Background(), order.ID, "bidder-2")
	require.ErrorIs(t, err, domain.ErrAuthorization)
}

func TestUpdateDelivery(t *testing.T) {
	t.Parallel()
	f := newFixture()
	endedAuction(t, f, "auction-1")
	order, err := f.orders.CreateOrder(context.Background(), "auction-1", "bidder-1", OrderInput{})
	require.NoError(t, err)

	inTransit := domain.DeliveryInTransit
	updated, err := f.orders.UpdateDelivery(context.Background(), order.ID, "seller-1", DeliveryUpdate{
		DeliveryStatus: &inTransit,
	})
	require.NoError(t, err)
	require.Equal(t, domain.DeliveryInTransit, updated.DeliveryStatus)

	// The buyer hears about the move.
	var statusNotes int
	for _, n := range f.notes.forUser("bidder-1") {
		if n.Kind == "order.delivery-status" {
			statusNotes++
		}
	}
	require.Equal(t, 1, statusNotes)
}

func TestUpdateDelivery_Preconditions(t *testing.T) {
	t.Parallel()
	f := newFixture()
	endedAuction(t, f, "auction-1")
	order, err := f.orders.CreateOrder(context.Background(), "auction-1", "bidder-1", OrderInput{})
	require.NoError(t, err)

	inTransit := domain.DeliveryInTransit
	_, err = f.orders.UpdateDelivery(context.Background(), order.ID, "bidder-1",
		DeliveryUpdate{DeliveryStatus: &inTransit})
	require.ErrorIs(t, err, domain.ErrAuthorization)

	bogus := domain.DeliveryStatus("teleported")
	_, err = f.orders.UpdateDelivery(context.Background(), order.ID, "seller-1",
		DeliveryUpdate{DeliveryStatus: &bogus})
	require.ErrorIs(t, err, domain.ErrValidation)

	past := f.clockNow().Add(-time.Hour)
	_, err = f.orders.UpdateDelivery(context.Background(), order.ID, "seller-1",
		DeliveryUpdate{DeliveryDate: &past})
	require.ErrorIs(t, err, domain.ErrValidation)
}
