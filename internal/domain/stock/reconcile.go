// Package stock — сверка остатков: лоты против записей о выдаче.
package stock

import (
	"sort"

	"github.com/Spok95/paperstock/internal/domain/consumption"
	"github.com/Spok95/paperstock/internal/domain/materials"
)

// Reconcile строит по строке на лот. Для RAW суммируются все выдачи, в
// списке кодов которых есть код лота; одна выдача на несколько кодов
// засчитывается каждому из них целиком. LO и WIP — выход производства,
// по ним выдачи не ищутся, приход равен исходному количеству.
func Reconcile(lots []materials.Lot, txs []consumption.Transaction) []Row {
	byCode := make(map[string][]int, len(txs))
	for i, tx := range txs {
		seen := map[string]bool{}
		for _, c := range tx.Codes() {
			if seen[c] {
				continue
			}
			seen[c] = true
			byCode[c] = append(byCode[c], i)
		}
	}

	rows := make([]Row, 0, len(lots))
	for _, l := range lots {
		r := Row{
			LotID:         l.ID,
			Date:          l.CreatedAt,
			PaperCode:     l.PaperCode,
			ProductCode:   l.ProductCode,
			Company:       l.Company,
			MaterialType:  l.MaterialType,
			Category:      l.Category,
			JobName:       l.JobName,
			MaterialIn:    l.TotalQty,
			Available:     l.AvailableQty,
			SourceJobCard: l.SourceJobCard,
			SourceStage:   l.SourceStage,
			Active:        l.Active,
		}
		if r.ProductCode == "" {
			r.ProductCode = materials.ProductCode(l.MaterialType, l.PaperSize)
		}
		if l.Category == materials.CategoryRaw {
			for _, i := range byCode[l.PaperCode] {
				r.Used += txs[i].UsedQty
				r.Waste += txs[i].WasteQty
				r.Leftover += txs[i].LeftoverQty
				r.WIP += txs[i].WIPQty
			}
		}
		rows = append(rows, r)
	}

	// новые сверху
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.After(rows[j].Date) })
	return rows
}
