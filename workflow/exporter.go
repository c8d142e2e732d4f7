package workflow

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	receivableHeaderFill = "FF4472C4"
	payableHeaderFill    = "FF70AD47"
	currencyFormat       = "R$ #,##0.00"
)

var exportableStatuses = []models.InspectionStatus{
	models.InspectionStatusCalculated,
	models.InspectionStatusApproved,
	models.InspectionStatusInvoiced,
}

// ReceivableDueDate is the agency's pay-day in the month after the
// reference period, clipped to that month's last day.
func ReceivableDueDate(month int, year int, payDay int) time.Time {
	dueMonth := month + 1
	dueYear := year
	if dueMonth > 12 {
		dueMonth = 1
		dueYear++
	}
	lastDay := time.Date(dueYear, time.Month(dueMonth)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := payDay
	if day > lastDay {
		day = lastDay
	}
	if day < 1 {
		day = 1
	}
	return time.Date(dueYear, time.Month(dueMonth), day, 0, 0, 0, 0, time.UTC)
}

// PayablePayDate is the fixed day 20 of the month after the reference
// period.
func PayablePayDate(month int, year int) time.Time {
	payMonth := month + 1
	payYear := year
	if payMonth > 12 {
		payMonth = 1
		payYear++
	}
	return time.Date(payYear, time.Month(payMonth), 20, 0, 0, 0, 0, time.UTC)
}

func furnishingLabel(furnishing models.FurnishingType) string {
	switch furnishing {
	case models.FurnishingFull:
		return "Sim"
	case models.FurnishingSemi:
		return "Semi"
	}
	return "Não"
}

func serviceTypeName(record *models.InspectionRecord) string {
	if record.ServiceType != nil {
		return record.ServiceType.Name
	}
	return ""
}

func orEmptyDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

// counterpartyGroup is one summary row: a counterparty with its records
// and running total, in first-seen order.
type counterpartyGroup struct {
	Id      int
	Name    string
	Records []*models.InspectionRecord
	Total   decimal.Decimal
}

func groupRecords(records []*models.InspectionRecord, keyOf func(*models.InspectionRecord) int, nameOf func(*models.InspectionRecord) string, amountOf func(*models.InspectionRecord) decimal.Decimal) []*counterpartyGroup {
	byId := map[int]*counterpartyGroup{}
	groups := []*counterpartyGroup{}
	for _, record := range records {
		id := keyOf(record)
		group, ok := byId[id]
		if !ok {
			group = &counterpartyGroup{Id: id, Name: nameOf(record), Total: decimal.Zero}
			byId[id] = group
			groups = append(groups, group)
		}
		group.Records = append(group.Records, record)
		group.Total = group.Total.Add(amountOf(record))
	}
	return groups
}

func loadExportRecords(ctx context.Context, closureId int, join string, order string) ([]*models.InspectionRecord, error) {
	db := config.GetDB()
	var records []*models.InspectionRecord
	err := db.WithContext(ctx).
		Preload("Agency").Preload("Inspector").Preload("ServiceType").
		Joins(join).
		Where("inspection_records.closure_period_id = ? AND inspection_records.status IN ?", closureId, exportableStatuses).
		Order(order).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

type exportStyles struct {
	header   int
	bold     int
	currency int
}

func newExportStyles(f *excelize.File, fill string) (*exportStyles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{fill}},
	})
	if err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	numFmt := currencyFormat
	currency, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return nil, err
	}
	return &exportStyles{header: header, bold: bold, currency: currency}, nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func styleHeaderRow(f *excelize.File, sheet string, styles *exportStyles, columns int) error {
	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, styles.header)
}

func styleCurrencyColumn(f *excelize.File, sheet string, styles *exportStyles, column int, fromRow int, toRow int) error {
	if toRow < fromRow {
		return nil
	}
	from, err := excelize.CoordinatesToCellName(column, fromRow)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(column, toRow)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, from, to, styles.currency)
}

// ExportReceivables builds the agency-facing workbook: a styled Resumo
// sheet grouped by agency with due dates, a Detalhes sheet with one row
// per record, and a Flow Import sheet shaped for the accounting system.
func ExportReceivables(ctx context.Context, closureId int) ([]byte, error) {

	period, err := models.GetClosurePeriod(ctx, closureId)
	if err != nil {
		return nil, err
	}

	records, err := loadExportRecords(ctx, closureId,
		"JOIN agencies ON agencies.id = inspection_records.agency_id",
		"agencies.name asc, inspection_records.created_at asc")
	if err != nil {
		return nil, err
	}
	groups := groupRecords(records,
		func(r *models.InspectionRecord) int { return r.AgencyId },
		func(r *models.InspectionRecord) string { return r.Agency.Name },
		func(r *models.InspectionRecord) decimal.Decimal { return r.ReceivableAmt })

	f := excelize.NewFile()
	defer f.Close()
	styles, err := newExportStyles(f, receivableHeaderFill)
	if err != nil {
		return nil, err
	}
	reference := fmt.Sprintf("Vistorias %s", period.Reference())

	// Resumo
	resumo := "Resumo"
	f.SetSheetName("Sheet1", resumo)
	if err := setRow(f, resumo, 1, []interface{}{
		"Cliente", "CNPJ", "Qtd Vistorias", "Valor Total", "Vencimento", "Forma Pagamento", "Referência",
	}); err != nil {
		return nil, err
	}
	if err := styleHeaderRow(f, resumo, styles, 7); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(resumo, "A", "A", 40)
	_ = f.SetColWidth(resumo, "B", "G", 20)

	row := 2
	grandTotal := decimal.Zero
	for _, group := range groups {
		agency := group.Records[0].Agency
		due := ReceivableDueDate(period.Month, period.Year, agency.PaymentDay)
		if err := setRow(f, resumo, row, []interface{}{
			group.Name,
			orEmptyDash(agency.Cnpj),
			len(group.Records),
			group.Total.InexactFloat64(),
			due.Format("02/01/2006"),
			string(agency.PaymentMethod),
			reference,
		}); err != nil {
			return nil, err
		}
		grandTotal = grandTotal.Add(group.Total)
		row++
	}
	if err := setRow(f, resumo, row, []interface{}{
		"TOTAL GERAL", "", len(records), grandTotal.InexactFloat64(),
	}); err != nil {
		return nil, err
	}
	totalCell, _ := excelize.CoordinatesToCellName(1, row)
	endCell, _ := excelize.CoordinatesToCellName(7, row)
	_ = f.SetCellStyle(resumo, totalCell, endCell, styles.bold)
	if err := styleCurrencyColumn(f, resumo, styles, 4, 2, row); err != nil {
		return nil, err
	}

	// Detalhes
	detalhes := "Detalhes"
	if _, err := f.NewSheet(detalhes); err != nil {
		return nil, err
	}
	if err := setRow(f, detalhes, 1, []interface{}{
		"Cliente", "ID KSI", "Endereço", "Cidade", "Tipo Serviço", "Área (m²)", "Mobiliado", "Valor",
	}); err != nil {
		return nil, err
	}
	if err := styleHeaderRow(f, detalhes, styles, 8); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(detalhes, "A", "A", 35)
	_ = f.SetColWidth(detalhes, "C", "C", 45)

	for i, record := range records {
		if err := setRow(f, detalhes, i+2, []interface{}{
			record.Agency.Name,
			record.KsiId,
			record.Address,
			record.City,
			serviceTypeName(record),
			record.BillableArea.InexactFloat64(),
			furnishingLabel(record.Furnishing),
			record.ReceivableAmt.InexactFloat64(),
		}); err != nil {
			return nil, err
		}
	}
	if err := styleCurrencyColumn(f, detalhes, styles, 8, 2, len(records)+1); err != nil {
		return nil, err
	}

	// Flow Import
	flow := "Flow Import"
	if _, err := f.NewSheet(flow); err != nil {
		return nil, err
	}
	if err := setRow(f, flow, 1, []interface{}{
		"Cliente", "Valor", "Vencimento", "Forma Pagamento", "Descrição", "Centro de Custo",
	}); err != nil {
		return nil, err
	}
	headerEnd, _ := excelize.CoordinatesToCellName(6, 1)
	_ = f.SetCellStyle(flow, "A1", headerEnd, styles.bold)

	description := fmt.Sprintf("Vistorias ref. %s", period.Reference())
	for i, group := range groups {
		agency := group.Records[0].Agency
		due := ReceivableDueDate(period.Month, period.Year, agency.PaymentDay)
		if err := setRow(f, flow, i+2, []interface{}{
			group.Name,
			group.Total.InexactFloat64(),
			due.Format("2006-01-02"),
			string(agency.PaymentMethod),
			description,
			"Vistorias",
		}); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportPayables builds the inspector-facing workbook with the same three
// sheets, green header fill, PIX keys and the fixed day-20 payment date.
func ExportPayables(ctx context.Context, closureId int) ([]byte, error) {

	period, err := models.GetClosurePeriod(ctx, closureId)
	if err != nil {
		return nil, err
	}

	records, err := loadExportRecords(ctx, closureId,
		"JOIN inspectors ON inspectors.id = inspection_records.inspector_id",
		"inspectors.name asc, inspection_records.created_at asc")
	if err != nil {
		return nil, err
	}
	groups := groupRecords(records,
		func(r *models.InspectionRecord) int { return r.InspectorId },
		func(r *models.InspectionRecord) string { return r.Inspector.Name },
		func(r *models.InspectionRecord) decimal.Decimal { return r.PayableAmt })

	f := excelize.NewFile()
	defer f.Close()
	styles, err := newExportStyles(f, payableHeaderFill)
	if err != nil {
		return nil, err
	}
	reference := fmt.Sprintf("Vistorias %s", period.Reference())

	// Resumo
	resumo := "Resumo"
	f.SetSheetName("Sheet1", resumo)
	if err := setRow(f, resumo, 1, []interface{}{
		"Vistoriador", "CPF", "Qtd Vistorias", "Valor Total", "Chave PIX", "Referência",
	}); err != nil {
		return nil, err
	}
	if err := styleHeaderRow(f, resumo, styles, 6); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(resumo, "A", "A", 35)
	_ = f.SetColWidth(resumo, "B", "F", 20)

	row := 2
	grandTotal := decimal.Zero
	for _, group := range groups {
		inspector := group.Records[0].Inspector
		if err := setRow(f, resumo, row, []interface{}{
			group.Name,
			orEmptyDash(inspector.Cpf),
			len(group.Records),
			group.Total.InexactFloat64(),
			orEmptyDash(inspector.PixKey),
			reference,
		}); err != nil {
			return nil, err
		}
		grandTotal = grandTotal.Add(group.Total)
		row++
	}
	if err := setRow(f, resumo, row, []interface{}{
		"TOTAL GERAL", "", len(records), grandTotal.InexactFloat64(),
	}); err != nil {
		return nil, err
	}
	totalCell, _ := excelize.CoordinatesToCellName(1, row)
	endCell, _ := excelize.CoordinatesToCellName(6, row)
	_ = f.SetCellStyle(resumo, totalCell, endCell, styles.bold)
	if err := styleCurrencyColumn(f, resumo, styles, 4, 2, row); err != nil {
		return nil, err
	}

	// Detalhes
	detalhes := "Detalhes"
	if _, err := f.NewSheet(detalhes); err != nil {
		return nil, err
	}
	if err := setRow(f, detalhes, 1, []interface{}{
		"Vistoriador", "Cliente", "ID KSI", "Endereço", "Cidade", "Tipo Serviço", "Área (m²)", "Mobiliado", "Valor",
	}); err != nil {
		return nil, err
	}
	if err := styleHeaderRow(f, detalhes, styles, 9); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(detalhes, "A", "B", 30)
	_ = f.SetColWidth(detalhes, "D", "D", 40)

	for i, record := range records {
		agencyName := ""
		if record.Agency != nil {
			agencyName = record.Agency.Name
		}
		if err := setRow(f, detalhes, i+2, []interface{}{
			record.Inspector.Name,
			agencyName,
			record.KsiId,
			record.Address,
			record.City,
			serviceTypeName(record),
			record.BillableArea.InexactFloat64(),
			furnishingLabel(record.Furnishing),
			record.PayableAmt.InexactFloat64(),
		}); err != nil {
			return nil, err
		}
	}
	if err := styleCurrencyColumn(f, detalhes, styles, 9, 2, len(records)+1); err != nil {
		return nil, err
	}

	// Flow Import
	flow := "Flow Import"
	if _, err := f.NewSheet(flow); err != nil {
		return nil, err
	}
	if err := setRow(f, flow, 1, []interface{}{
		"Fornecedor", "CPF", "Valor", "Data Pagamento", "Chave PIX", "Descrição", "Centro de Custo",
	}); err != nil {
		return nil, err
	}
	headerEnd, _ := excelize.CoordinatesToCellName(7, 1)
	_ = f.SetCellStyle(flow, "A1", headerEnd, styles.bold)

	payDate := PayablePayDate(period.Month, period.Year)
	description := fmt.Sprintf("Vistorias ref. %s", period.Reference())
	for i, group := range groups {
		inspector := group.Records[0].Inspector
		if err := setRow(f, flow, i+2, []interface{}{
			group.Name,
			inspector.Cpf,
			group.Total.InexactFloat64(),
			payDate.Format("2006-01-02"),
			inspector.PixKey,
			description,
			"Vistoriadores",
		}); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
