package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/models"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var ErrorClosureNotImportable = errors.New("closure is not in an importable status")
var ErrorNoWorksheet = errors.New("spreadsheet has no worksheets")

// UnidentifiedCity is the sentinel stored when no city can be derived.
const UnidentifiedCity = "NÃO IDENTIFICADA"

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Total         int        `json:"total"`
	Imported      int        `json:"imported"`
	Errors        []RowError `json:"errors"`
	NewAgencies   []string   `json:"new_agencies"`
	NewInspectors []string   `json:"new_inspectors"`
}

// parsedRow is one spreadsheet row after normalization, before any
// database resolution.
type parsedRow struct {
	RowNumber    int
	KsiId        string
	Contract     string
	Client       string
	Inspector    string
	Address      string
	City         string
	InformedArea *decimal.Decimal
	MeasuredArea *decimal.Decimal
	BillableArea decimal.Decimal
	Furnished    string
	ServiceType  string
	ScheduledAt  *time.Time
	FinishedAt   *time.Time
}

// headerMap maps lowercased, trimmed header cells to their column index.
type headerMap map[string]int

func buildHeaderMap(headerCells []string) headerMap {
	headers := headerMap{}
	for idx, cell := range headerCells {
		name := strings.ToLower(strings.TrimSpace(cell))
		if name == "" {
			continue
		}
		if _, exists := headers[name]; !exists {
			headers[name] = idx
		}
	}
	return headers
}

// cellString returns the first non-empty cell among the alias names.
func (h headerMap) cellString(cells []string, aliases ...string) string {
	for _, alias := range aliases {
		idx, ok := h[alias]
		if !ok || idx >= len(cells) {
			continue
		}
		value := strings.TrimSpace(cells[idx])
		if value != "" {
			return value
		}
	}
	return ""
}

// cellNumber tolerates comma decimal separators; unparseable cells yield
// nil rather than an error.
func (h headerMap) cellNumber(cells []string, aliases ...string) *decimal.Decimal {
	for _, alias := range aliases {
		idx, ok := h[alias]
		if !ok || idx >= len(cells) {
			continue
		}
		raw := strings.TrimSpace(cells[idx])
		if raw == "" {
			continue
		}
		value, err := utils.ParseDecimal(raw)
		if err != nil {
			continue
		}
		return &value
	}
	return nil
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"01-02-06",
	time.RFC3339,
}

func (h headerMap) cellDate(cells []string, aliases ...string) *time.Time {
	for _, alias := range aliases {
		idx, ok := h[alias]
		if !ok || idx >= len(cells) {
			continue
		}
		raw := strings.TrimSpace(cells[idx])
		if raw == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, raw); err == nil {
				return &parsed
			}
		}
	}
	return nil
}

var cityPattern = regexp.MustCompile(`(?i)([A-Za-zÀ-ÿ\s]+)/[A-Z]{2}\s*-?\s*CEP`)
var statePattern = regexp.MustCompile(`[A-Z]{2}`)
var stateSuffixPattern = regexp.MustCompile(`/[A-Z]{2}.*`)

// ExtractCity derives a city from a free-text address. It first looks for
// a "City/ST ... CEP" fragment, then scans dash-separated parts from the
// end for one that carries a state code without the CEP marker.
func ExtractCity(address string) string {
	if address == "" {
		return UnidentifiedCity
	}

	if m := cityPattern.FindStringSubmatch(address); m != nil {
		return strings.TrimSpace(m[1])
	}

	parts := strings.Split(address, "-")
	for i := len(parts) - 1; i >= 0; i-- {
		part := parts[i]
		if !strings.Contains(part, "CEP") && statePattern.MatchString(part) {
			return strings.TrimSpace(stateSuffixPattern.ReplaceAllString(part, ""))
		}
	}

	return UnidentifiedCity
}

// NormalizeFurnishing maps spreadsheet free text onto the furnishing enum.
// Unrecognized values mean unfurnished.
func NormalizeFurnishing(value string) models.FurnishingType {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "SIM", "S", "MOBILIADO":
		return models.FurnishingFull
	case "SEMI", "SEMI-MOBILIADO", "PARCIAL":
		return models.FurnishingSemi
	}
	return models.FurnishingNone
}

func isEmptyRow(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseRows reads the data rows, collecting row-level errors for missing
// required fields. Row numbers are 1-based including the header row.
func parseRows(rows [][]string, result *ImportResult) []*parsedRow {
	headers := buildHeaderMap(rows[0])
	parsed := []*parsedRow{}

	for i, cells := range rows[1:] {
		rowNumber := i + 2
		if isEmptyRow(cells) {
			continue
		}
		result.Total++

		ksiId := headers.cellString(cells, "id")
		if ksiId == "" {
			result.Errors = append(result.Errors, RowError{Row: rowNumber, Message: "id missing"})
			continue
		}
		client := headers.cellString(cells, "cliente")
		if client == "" {
			result.Errors = append(result.Errors, RowError{Row: rowNumber, Message: "client missing"})
			continue
		}
		inspector := headers.cellString(cells, "vistoriadores")
		if inspector == "" {
			result.Errors = append(result.Errors, RowError{Row: rowNumber, Message: "inspector missing"})
			continue
		}

		address := headers.cellString(cells, "endereço", "endereco")
		city := headers.cellString(cells, "cidade")
		if city == "" {
			city = ExtractCity(address)
		}

		measured := headers.cellNumber(cells, "área aferida", "area aferida")
		billable := headers.cellNumber(cells, "área à faturar", "area faturar")
		if billable == nil {
			billable = measured
		}
		billableArea := decimal.Zero
		if billable != nil {
			billableArea = *billable
		}

		parsed = append(parsed, &parsedRow{
			RowNumber:    rowNumber,
			KsiId:        ksiId,
			Contract:     headers.cellString(cells, "n° contrato", "contrato"),
			Client:       client,
			Inspector:    inspector,
			Address:      address,
			City:         city,
			InformedArea: headers.cellNumber(cells, "área infor.", "area informada"),
			MeasuredArea: measured,
			BillableArea: billableArea,
			Furnished:    headers.cellString(cells, "mobiliado"),
			ServiceType:  headers.cellString(cells, "tipo serviço", "tipo servico"),
			ScheduledAt:  headers.cellDate(cells, "data agenda"),
			FinishedAt:   headers.cellDate(cells, "data finalizado"),
		})
	}

	return parsed
}

// importCaches resolve counterparties and service types by their external
// keys, case-insensitively, creating missing entries inside the import
// transaction.
type importCaches struct {
	agencies     map[string]int
	inspectors   map[string]int
	serviceTypes map[string]int
}

func loadImportCaches(ctx context.Context) (*importCaches, error) {
	caches := importCaches{
		agencies:     map[string]int{},
		inspectors:   map[string]int{},
		serviceTypes: map[string]int{},
	}

	agencies, err := models.GetAgencies(ctx)
	if err != nil {
		return nil, err
	}
	for _, agency := range agencies {
		caches.agencies[strings.ToLower(agency.KsiName)] = agency.ID
	}

	inspectors, err := models.GetInspectors(ctx)
	if err != nil {
		return nil, err
	}
	for _, inspector := range inspectors {
		caches.inspectors[strings.ToLower(inspector.KsiName)] = inspector.ID
	}

	serviceTypes, err := models.GetServiceTypes(ctx)
	if err != nil {
		return nil, err
	}
	for _, serviceType := range serviceTypes {
		caches.serviceTypes[strings.ToLower(serviceType.Code)] = serviceType.ID
	}

	return &caches, nil
}

func (c *importCaches) resolveAgency(ctx context.Context, tx *gorm.DB, row *parsedRow, result *ImportResult) (int, error) {
	key := strings.ToLower(row.Client)
	if id, ok := c.agencies[key]; ok {
		return id, nil
	}
	agency := models.Agency{
		Name:       row.Client,
		KsiName:    row.Client,
		City:       row.City,
		PaymentDay: 10,
		IsActive:   utils.NewTrue(),
	}
	if err := tx.WithContext(ctx).Create(&agency).Error; err != nil {
		return 0, err
	}
	c.agencies[key] = agency.ID
	result.NewAgencies = append(result.NewAgencies, row.Client)
	return agency.ID, nil
}

func (c *importCaches) resolveInspector(ctx context.Context, tx *gorm.DB, row *parsedRow, result *ImportResult) (int, error) {
	key := strings.ToLower(row.Inspector)
	if id, ok := c.inspectors[key]; ok {
		return id, nil
	}
	inspector := models.Inspector{
		Name:     row.Inspector,
		KsiName:  row.Inspector,
		City:     row.City,
		IsActive: utils.NewTrue(),
	}
	if err := tx.WithContext(ctx).Create(&inspector).Error; err != nil {
		return 0, err
	}
	c.inspectors[key] = inspector.ID
	result.NewInspectors = append(result.NewInspectors, row.Inspector)
	return inspector.ID, nil
}

func (c *importCaches) resolveServiceType(ctx context.Context, tx *gorm.DB, label string) (*int, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, nil
	}
	key := strings.ToLower(label)
	if id, ok := c.serviceTypes[key]; ok {
		return &id, nil
	}

	code, name := models.ParseServiceTypeLabel(label)
	if id, ok := c.serviceTypes[strings.ToLower(code)]; ok {
		c.serviceTypes[key] = id
		return &id, nil
	}

	serviceType := models.ServiceType{
		Code:     code,
		Name:     name,
		IsActive: utils.NewTrue(),
	}
	if err := tx.WithContext(ctx).Create(&serviceType).Error; err != nil {
		return nil, err
	}
	c.serviceTypes[key] = serviceType.ID
	c.serviceTypes[strings.ToLower(code)] = serviceType.ID
	return &serviceType.ID, nil
}

// importTxnHook, when set, runs inside the import transaction right
// before the period update. Tests use it to force a rollback.
var importTxnHook func() error

// ImportSpreadsheet parses the first worksheet and atomically replaces the
// period's record set. Per-row errors are collected without aborting the
// transaction; a transaction failure leaves the prior record set intact.
func ImportSpreadsheet(ctx context.Context, closureId int, data []byte) (*ImportResult, error) {
	logger := config.GetLogger()

	period, err := models.GetClosurePeriod(ctx, closureId)
	if err != nil {
		return nil, err
	}
	if !period.Status.CanImport() {
		return nil, ErrorClosureNotImportable
	}

	release, err := ObtainClosureLock(ctx, closureId)
	if err != nil {
		return nil, err
	}
	defer release()

	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrorNoWorksheet
	}
	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrorNoWorksheet
	}

	result := ImportResult{
		Errors:        []RowError{},
		NewAgencies:   []string{},
		NewInspectors: []string{},
	}
	parsed := parseRows(rows, &result)

	caches, err := loadImportCaches(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("closure_period_id = ?", closureId).
			Delete(&models.InspectionRecord{}).Error; err != nil {
			return err
		}

		for _, row := range parsed {
			if err := importRow(ctx, tx, caches, period, row, &result); err != nil {
				result.Errors = append(result.Errors, RowError{Row: row.RowNumber, Message: err.Error()})
				continue
			}
			result.Imported++
		}

		if importTxnHook != nil {
			if err := importTxnHook(); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		return tx.Model(&models.ClosurePeriod{}).
			Where("id = ?", closureId).
			Updates(map[string]interface{}{
				"Status":      models.ClosureStatusImported,
				"ImportedAt":  &now,
				"RecordCount": result.Imported,
			}).Error
	})
	if err != nil {
		config.LogError(logger, "importer.go", "ImportSpreadsheet", "transaction", closureId, err)
		return nil, err
	}

	logger.WithField("closure_id", closureId).
		WithField("total", result.Total).
		WithField("imported", result.Imported).
		WithField("errors", len(result.Errors)).
		Info("spreadsheet imported")

	return &result, nil
}

func importRow(ctx context.Context, tx *gorm.DB, caches *importCaches, period *models.ClosurePeriod, row *parsedRow, result *ImportResult) error {
	agencyId, err := caches.resolveAgency(ctx, tx, row, result)
	if err != nil {
		return err
	}
	inspectorId, err := caches.resolveInspector(ctx, tx, row, result)
	if err != nil {
		return err
	}
	serviceTypeId, err := caches.resolveServiceType(ctx, tx, row.ServiceType)
	if err != nil {
		return err
	}

	record := models.InspectionRecord{
		ClosurePeriodId: period.ID,
		AgencyId:        agencyId,
		InspectorId:     inspectorId,
		ServiceTypeId:   serviceTypeId,
		KsiId:           row.KsiId,
		ContractNumber:  row.Contract,
		Address:         row.Address,
		City:            row.City,
		InformedArea:    row.InformedArea,
		MeasuredArea:    row.MeasuredArea,
		BillableArea:    row.BillableArea,
		Furnishing:      NormalizeFurnishing(row.Furnished),
		ScheduledAt:     row.ScheduledAt,
		FinishedAt:      row.FinishedAt,
		Status:          models.InspectionStatusImported,
	}
	return tx.WithContext(ctx).Create(&record).Error
}

func importSummary(result *ImportResult) string {
	return fmt.Sprintf("total=%d imported=%d errors=%d new_agencies=%d new_inspectors=%d",
		result.Total, result.Imported, len(result.Errors),
		len(result.NewAgencies), len(result.NewInspectors))
}
