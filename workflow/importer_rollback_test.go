package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/models"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// A transaction failure mid-import must leave the period's prior record
// set and totals untouched; a later successful import replaces them.
func TestImportSpreadsheet_RollbackKeepsPriorRecords(t *testing.T) {
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()
	db := config.GetDB()
	ctx := context.Background()

	suffix := fmt.Sprintf("%d", time.Now().UnixNano())

	var stale []models.ClosurePeriod
	db.Where("month = ? AND year = ?", 1, 2999).Find(&stale)
	for _, p := range stale {
		db.Where("closure_period_id = ?", p.ID).Delete(&models.InspectionRecord{})
		db.Delete(&p)
	}

	agency := models.Agency{
		Name:       "Imobiliária Reversão " + suffix,
		KsiName:    "IMOBILIARIA REVERSAO " + suffix,
		City:       "São Paulo",
		PaymentDay: 10,
		IsActive:   utils.NewTrue(),
	}
	if err := db.Create(&agency).Error; err != nil {
		t.Fatalf("create agency: %v", err)
	}
	defer db.Delete(&agency)

	inspector := models.Inspector{
		Name:     "Vistoriador Reversão " + suffix,
		KsiName:  "VISTORIADOR REVERSAO " + suffix,
		City:     "São Paulo",
		IsActive: utils.NewTrue(),
	}
	if err := db.Create(&inspector).Error; err != nil {
		t.Fatalf("create inspector: %v", err)
	}
	defer db.Delete(&inspector)

	importedAt := time.Now().UTC()
	period := models.ClosurePeriod{
		Month:           1,
		Year:            2999,
		Status:          models.ClosureStatusImported,
		ImportedAt:      &importedAt,
		RecordCount:     1,
		TotalReceivable: decimal.Zero,
		TotalPayable:    decimal.Zero,
	}
	if err := db.Create(&period).Error; err != nil {
		t.Fatalf("create period: %v", err)
	}
	defer db.Delete(&period)
	defer db.Where("closure_period_id = ?", period.ID).Delete(&models.InspectionRecord{})

	prior := models.InspectionRecord{
		ClosurePeriodId: period.ID,
		AgencyId:        agency.ID,
		InspectorId:     inspector.ID,
		KsiId:           "PRIOR-" + suffix,
		BillableArea:    decimal.NewFromInt(100),
		ReceivableAmt:   decimal.Zero,
		PayableAmt:      decimal.Zero,
		Furnishing:      models.FurnishingNone,
		Status:          models.InspectionStatusImported,
	}
	if err := db.Create(&prior).Error; err != nil {
		t.Fatalf("create prior record: %v", err)
	}

	workbook := excelize.NewFile()
	sheet := workbook.GetSheetName(0)
	if err := workbook.SetSheetRow(sheet, "A1", &[]interface{}{"id", "cliente", "vistoriadores", "área aferida"}); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := workbook.SetSheetRow(sheet, "A2", &[]interface{}{"NEW-" + suffix, agency.KsiName, inspector.KsiName, "98,5"}); err != nil {
		t.Fatalf("write row: %v", err)
	}
	var buf bytes.Buffer
	if err := workbook.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	importTxnHook = func() error { return errors.New("storage offline") }
	_, err := ImportSpreadsheet(ctx, period.ID, buf.Bytes())
	importTxnHook = nil
	if err == nil {
		t.Fatal("expected the import to fail")
	}

	var priorCount int64
	db.Model(&models.InspectionRecord{}).
		Where("closure_period_id = ? AND ksi_id = ?", period.ID, prior.KsiId).
		Count(&priorCount)
	if priorCount != 1 {
		t.Fatalf("prior record must survive a failed import, found %d", priorCount)
	}
	var newCount int64
	db.Model(&models.InspectionRecord{}).
		Where("closure_period_id = ? AND ksi_id = ?", period.ID, "NEW-"+suffix).
		Count(&newCount)
	if newCount != 0 {
		t.Fatalf("rolled back rows must not persist, found %d", newCount)
	}
	var reloaded models.ClosurePeriod
	if err := db.First(&reloaded, period.ID).Error; err != nil {
		t.Fatalf("reload period: %v", err)
	}
	if reloaded.RecordCount != 1 || reloaded.Status != models.ClosureStatusImported {
		t.Fatalf("period must be untouched after rollback: count=%d status=%s", reloaded.RecordCount, reloaded.Status)
	}

	result, err := ImportSpreadsheet(ctx, period.ID, buf.Bytes())
	if err != nil {
		t.Fatalf("reimport: %v", err)
	}
	if result.Imported != 1 || len(result.Errors) != 0 {
		t.Fatalf("unexpected reimport result: %+v", result)
	}

	db.Model(&models.InspectionRecord{}).
		Where("closure_period_id = ? AND ksi_id = ?", period.ID, prior.KsiId).
		Count(&priorCount)
	if priorCount != 0 {
		t.Fatalf("reimport must replace the prior record set, found %d", priorCount)
	}
	db.Model(&models.InspectionRecord{}).
		Where("closure_period_id = ? AND ksi_id = ?", period.ID, "NEW-"+suffix).
		Count(&newCount)
	if newCount != 1 {
		t.Fatalf("expected the imported row to persist, found %d", newCount)
	}
}
