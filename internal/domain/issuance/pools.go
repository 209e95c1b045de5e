package issuance

import (
	"context"

	"github.com/Spok95/paperstock/internal/domain/materials"
)

// LedgerPools — пулы LO/WIP из реестра: те же компания/тип/формат,
// только лоты с ненулевым остатком.
type LedgerPools struct{ lots Lots }

func NewLedgerPools(lots Lots) LedgerPools { return LedgerPools{lots: lots} }

func (p LedgerPools) Leftover(ctx context.Context, h Header) ([]materials.Lot, error) {
	return p.available(ctx, materials.CategoryLeftover, h)
}

func (p LedgerPools) WorkInProgress(ctx context.Context, h Header) ([]materials.Lot, error) {
	return p.available(ctx, materials.CategoryWIP, h)
}

func (p LedgerPools) available(ctx context.Context, c materials.Category, h Header) ([]materials.Lot, error) {
	lots, err := p.lots.Match(ctx, c, h.Company, h.MaterialType, h.PaperSize)
	if err != nil {
		return nil, err
	}
	out := lots[:0]
	for _, l := range lots {
		if l.Active && l.AvailableQty > 0 {
			out = append(out, l)
		}
	}
	return out, nil
}
