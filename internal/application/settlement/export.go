package settlement

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/settlement"
	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
)

// utf8BOM is prepended so spreadsheet tools detect the encoding
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var exportHeader = []string{"StoreName", "OrderCount", "TotalGmv", "TotalCommission", "TotalNetPayout", "Currency"}

// ExportResult is the outcome of a period export
type ExportResult struct {
	// Content is the CSV payload, UTF-8 with BOM
	Content []byte
	// Filename is the suggested download name
	Filename string
	// SettlementCount is the number of store rows in the export
	SettlementCount int
}

// ExportPeriod renders the month's approved settlements as CSV, one row per
// seller plus a trailing TOTAL row, and marks the exported settlements
// accordingly. Only the latest version per store is considered and it must
// have reached Approved; drafts block the export.
func (s *SettlementService) ExportPeriod(ctx context.Context, year, month int) (*ExportResult, error) {
	settlements, err := s.settlementRepo.FindByPeriod(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to load period settlements: %w", err)
	}
	if len(settlements) == 0 {
		return nil, shared.NewDomainError("NO_SETTLEMENTS", "No settlements exist for the period")
	}

	storeIDs := make([]uuid.UUID, 0, len(settlements))
	for _, stl := range settlements {
		if stl.Status == settlement.StatusDraft || stl.Status == settlement.StatusFinalized {
			return nil, shared.NewDomainError("SETTLEMENT_NOT_APPROVED",
				fmt.Sprintf("Settlement %s is %s; all settlements must be approved before export",
					stl.SettlementNumber, stl.Status))
		}
		storeIDs = append(storeIDs, stl.StoreID)
	}

	storeNames, err := s.stores.FindStores(ctx, storeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store names: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}

	totalOrders := 0
	totalGmv := decimal.Zero
	totalCommission := decimal.Zero
	totalNet := decimal.Zero
	currency := s.cfg.Currency

	for _, stl := range settlements {
		name := stl.StoreID.String()
		if info, ok := storeNames[stl.StoreID]; ok {
			name = info.StoreName
		}
		gmv := stl.GrossSales.Add(stl.TotalShipping)

		record := []string{
			name,
			fmt.Sprintf("%d", stl.OrderCount),
			gmv.StringFixed(2),
			stl.TotalCommission.StringFixed(2),
			stl.NetPayable.StringFixed(2),
			string(stl.Currency),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}

		totalOrders += stl.OrderCount
		totalGmv = totalGmv.Add(gmv)
		totalCommission = totalCommission.Add(stl.TotalCommission)
		totalNet = totalNet.Add(stl.NetPayable)
	}

	total := []string{
		"TOTAL",
		fmt.Sprintf("%d", totalOrders),
		totalGmv.StringFixed(2),
		totalCommission.StringFixed(2),
		totalNet.StringFixed(2),
		string(currency),
	}
	if err := w.Write(total); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	for _, stl := range settlements {
		if stl.Status != settlement.StatusApproved {
			continue
		}
		if err := stl.MarkExported(); err != nil {
			return nil, err
		}
		if err := s.settlementRepo.Save(ctx, stl); err != nil {
			return nil, fmt.Errorf("failed to mark settlement exported: %w", err)
		}
	}

	s.logger.Info("settlement period exported",
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Int("settlements", len(settlements)),
		zap.String("total_net", totalNet.StringFixed(2)),
	)
	return &ExportResult{
		Content:         buf.Bytes(),
		Filename:        fmt.Sprintf("settlements-%04d-%02d.csv", year, month),
		SettlementCount: len(settlements),
	}, nil
}
