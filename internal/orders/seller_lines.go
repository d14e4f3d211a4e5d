package orders

import (
	"sort"

	"github.com/google/uuid"

	"github.com/sellgrid/marketplace-backend/pkg/db/models"
	"github.com/sellgrid/marketplace-backend/pkg/outbox/payloads"
)

// SellerLinesFromItems collapses order items into one aggregate per seller,
// ordered by seller id so event payloads are stable.
func SellerLinesFromItems(items []models.OrderItem) []payloads.SellerLine {
	bySeller := map[uuid.UUID]*payloads.SellerLine{}
	for _, item := range items {
		line, ok := bySeller[item.SellerID]
		if !ok {
			line = &payloads.SellerLine{SellerID: item.SellerID}
			bySeller[item.SellerID] = line
		}
		line.ItemCount++
		line.QuantitySold += item.Quantity
		line.AmountCents += item.LineTotalCents
	}

	out := make([]payloads.SellerLine, 0, len(bySeller))
	for _, line := range bySeller {
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SellerID.String() < out[j].SellerID.String()
	})
	return out
}

func sellerHasLine(items []models.OrderItem, sellerID uuid.UUID) bool {
	for _, item := range items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}
