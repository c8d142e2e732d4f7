package workflow

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/models"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
	"github.com/shopspring/decimal"
)

var ErrorClosureNotCalculable = errors.New("closure is not in a calculable status")

type RecordError struct {
	RecordId int    `json:"record_id"`
	Message  string `json:"message"`
}

type CalculationResult struct {
	TotalRecords    int             `json:"total_records"`
	CalculatedCount int             `json:"calculated_count"`
	TotalReceivable decimal.Decimal `json:"total_receivable"`
	TotalPayable    decimal.Decimal `json:"total_payable"`
	Errors          []RecordError   `json:"errors"`
}

// rateKey identifies one rate row. BandId 0 means the bandless fallback.
type rateKey struct {
	CounterpartyId int
	ServiceTypeId  int
	BandId         int
}

type rateEntry struct {
	Base           decimal.Decimal
	FurnishedExtra decimal.Decimal
	SemiExtra      decimal.Decimal
}

// rateBook holds one batch's rate rows, keyed structurally.
type rateBook struct {
	entries map[rateKey]rateEntry
}

func (b *rateBook) put(counterpartyId int, serviceTypeId int, bandId *int, entry rateEntry) {
	key := rateKey{CounterpartyId: counterpartyId, ServiceTypeId: serviceTypeId}
	if bandId != nil {
		key.BandId = *bandId
	}
	if b.entries == nil {
		b.entries = map[rateKey]rateEntry{}
	}
	// first row wins on duplicates
	if _, exists := b.entries[key]; !exists {
		b.entries[key] = entry
	}
}

// resolve prefers the exact banded row, falls back to the bandless row,
// and yields a zero base when neither exists.
func (b *rateBook) resolve(counterpartyId int, serviceTypeId int, bandId int) rateEntry {
	if entry, ok := b.entries[rateKey{counterpartyId, serviceTypeId, bandId}]; ok {
		return entry
	}
	if bandId != 0 {
		if entry, ok := b.entries[rateKey{counterpartyId, serviceTypeId, 0}]; ok {
			return entry
		}
	}
	return rateEntry{Base: decimal.Zero, FurnishedExtra: decimal.Zero, SemiExtra: decimal.Zero}
}

// resolveBand finds the first band whose closed interval contains the
// area, scanning in the caller-provided order. No match means multiplier 1
// and no band.
func resolveBand(bands []*models.AreaBand, area decimal.Decimal) *models.AreaBand {
	for _, band := range bands {
		if band.Contains(area) {
			return band
		}
	}
	return nil
}

func surchargeFor(furnishing models.FurnishingType, entry rateEntry) decimal.Decimal {
	switch furnishing {
	case models.FurnishingFull:
		return entry.FurnishedExtra
	case models.FurnishingSemi:
		return entry.SemiExtra
	}
	return decimal.Zero
}

// computeAmount applies amount = round2(base * multiplier + surcharge).
func computeAmount(entry rateEntry, multiplier decimal.Decimal, furnishing models.FurnishingType) decimal.Decimal {
	return entry.Base.Mul(multiplier).Add(surchargeFor(furnishing, entry)).Round(2)
}

type recordAmounts struct {
	Receivable decimal.Decimal
	Payable    decimal.Decimal
	BandId     *int
}

// computeRecord derives both amounts for one record against the loaded
// rate books and band list.
func computeRecord(record *models.InspectionRecord, bands []*models.AreaBand, prices *rateBook, payouts *rateBook) recordAmounts {
	multiplier := decimal.NewFromInt(1)
	var bandId *int
	band := resolveBand(bands, record.BillableArea)
	if band != nil {
		multiplier = band.Multiplier
		id := band.ID
		bandId = &id
	}

	serviceTypeId := utils.DereferencePtr(record.ServiceTypeId)
	lookupBand := 0
	if bandId != nil {
		lookupBand = *bandId
	}

	priceEntry := prices.resolve(record.AgencyId, serviceTypeId, lookupBand)
	payoutEntry := payouts.resolve(record.InspectorId, serviceTypeId, lookupBand)

	return recordAmounts{
		Receivable: computeAmount(priceEntry, multiplier, record.Furnishing),
		Payable:    computeAmount(payoutEntry, multiplier, record.Furnishing),
		BandId:     bandId,
	}
}

func loadRateBooks(ctx context.Context) (*rateBook, *rateBook, error) {
	db := config.GetDB()

	var priceRows []*models.PriceTable
	if err := db.WithContext(ctx).Where("is_active = ?", true).Order("id asc").Find(&priceRows).Error; err != nil {
		return nil, nil, err
	}
	prices := &rateBook{}
	for _, row := range priceRows {
		prices.put(row.AgencyId, row.ServiceTypeId, row.AreaBandId, rateEntry{
			Base:           row.BaseAmount,
			FurnishedExtra: row.FurnishedExtra,
			SemiExtra:      row.SemiFurnedExtra,
		})
	}

	var payoutRows []*models.PayoutTable
	if err := db.WithContext(ctx).Where("is_active = ?", true).Order("id asc").Find(&payoutRows).Error; err != nil {
		return nil, nil, err
	}
	payouts := &rateBook{}
	for _, row := range payoutRows {
		payouts.put(row.InspectorId, row.ServiceTypeId, row.AreaBandId, rateEntry{
			Base:           row.BaseAmount,
			FurnishedExtra: row.FurnishedExtra,
			SemiExtra:      row.SemiFurnedExtra,
		})
	}

	return prices, payouts, nil
}

// CalculateClosure prices every record of the period. Per-record failures
// are collected and skipped; the batch is not atomic across records. The
// period totals are set to this pass's sums, never accumulated.
func CalculateClosure(ctx context.Context, closureId int) (*CalculationResult, error) {
	logger := config.GetLogger()

	period, err := models.GetClosurePeriod(ctx, closureId)
	if err != nil {
		return nil, err
	}
	if !period.Status.CanCalculate() {
		return nil, ErrorClosureNotCalculable
	}

	release, err := ObtainClosureLock(ctx, closureId)
	if err != nil {
		return nil, err
	}
	defer release()

	bands, err := models.GetAreaBands(ctx)
	if err != nil {
		return nil, err
	}
	prices, payouts, err := loadRateBooks(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var records []*models.InspectionRecord
	if err := db.WithContext(ctx).
		Where("closure_period_id = ?", closureId).
		Order("id asc").
		Find(&records).Error; err != nil {
		return nil, err
	}

	result := CalculationResult{
		TotalRecords:    len(records),
		TotalReceivable: decimal.Zero,
		TotalPayable:    decimal.Zero,
		Errors:          []RecordError{},
	}

	for _, record := range records {
		amounts := computeRecord(record, bands, prices, payouts)

		err := db.WithContext(ctx).Model(record).Updates(map[string]interface{}{
			"ReceivableAmt": amounts.Receivable,
			"PayableAmt":    amounts.Payable,
			"AreaBandId":    amounts.BandId,
			"Status":        models.InspectionStatusCalculated,
		}).Error
		if err != nil {
			config.LogError(logger, "calculation.go", "CalculateClosure", "persist record", record.ID, err)
			result.Errors = append(result.Errors, RecordError{RecordId: record.ID, Message: err.Error()})
			continue
		}

		result.CalculatedCount++
		result.TotalReceivable = result.TotalReceivable.Add(amounts.Receivable)
		result.TotalPayable = result.TotalPayable.Add(amounts.Payable)
	}

	if err := db.WithContext(ctx).Model(period).Updates(map[string]interface{}{
		"TotalReceivable": result.TotalReceivable,
		"TotalPayable":    result.TotalPayable,
		"Status":          models.ClosureStatusCalculated,
	}).Error; err != nil {
		return nil, err
	}

	logger.WithField("closure_id", closureId).
		WithField("calculated", result.CalculatedCount).
		WithField("errors", len(result.Errors)).
		Info("closure calculated")

	return &result, nil
}

// RecalculateInspection re-derives one record's amounts with the same
// rules, then recomputes the parent period's totals as a full aggregate
// over all current records, not an incremental delta.
func RecalculateInspection(ctx context.Context, recordId int) (*models.InspectionRecord, error) {

	db := config.GetDB()
	record, err := utils.FetchModel[models.InspectionRecord](ctx, recordId)
	if err != nil {
		return nil, err
	}

	release, err := ObtainClosureLock(ctx, record.ClosurePeriodId)
	if err != nil {
		return nil, err
	}
	defer release()

	bands, err := models.GetAreaBands(ctx)
	if err != nil {
		return nil, err
	}
	prices, payouts, err := loadRateBooks(ctx)
	if err != nil {
		return nil, err
	}

	amounts := computeRecord(record, bands, prices, payouts)
	if err := db.WithContext(ctx).Model(record).Updates(map[string]interface{}{
		"ReceivableAmt": amounts.Receivable,
		"PayableAmt":    amounts.Payable,
		"AreaBandId":    amounts.BandId,
		"Status":        models.InspectionStatusCalculated,
	}).Error; err != nil {
		return nil, err
	}

	if err := ReaggregateClosureTotals(ctx, record.ClosurePeriodId); err != nil {
		return nil, err
	}

	record.ReceivableAmt = amounts.Receivable
	record.PayableAmt = amounts.Payable
	record.AreaBandId = amounts.BandId
	record.Status = models.InspectionStatusCalculated
	return record, nil
}

// ReaggregateClosureTotals overwrites the period totals with the SUM over
// all records currently in the period.
func ReaggregateClosureTotals(ctx context.Context, closureId int) error {
	db := config.GetDB()

	var totals struct {
		Receivable decimal.Decimal
		Payable    decimal.Decimal
	}
	err := db.WithContext(ctx).Model(&models.InspectionRecord{}).
		Select("COALESCE(SUM(receivable_amount), 0) as receivable, COALESCE(SUM(payable_amount), 0) as payable").
		Where("closure_period_id = ?", closureId).
		Scan(&totals).Error
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Model(&models.ClosurePeriod{}).
		Where("id = ?", closureId).
		Updates(map[string]interface{}{
			"TotalReceivable": totals.Receivable,
			"TotalPayable":    totals.Payable,
		}).Error
}

func resultSummary(result *CalculationResult) string {
	return fmt.Sprintf("records=%d calculated=%d receivable=%s payable=%s errors=%d",
		result.TotalRecords, result.CalculatedCount,
		result.TotalReceivable.StringFixed(2), result.TotalPayable.StringFixed(2),
		len(result.Errors))
}
