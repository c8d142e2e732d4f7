package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
	"github.com/shopspring/decimal"
)

var ErrorDuplicatePeriod = errors.New("closure period already exists")
var ErrorInvalidTransition = errors.New("invalid status transition")

// ClosurePeriod aggregates the inspection records of one billing month.
// Totals are overwritten from scratch by every calculation pass.
type ClosurePeriod struct {
	ID              int             `gorm:"primary_key" json:"id"`
	Month           int             `gorm:"not null;uniqueIndex:uq_closure_period,priority:1" json:"month" binding:"required"`
	Year            int             `gorm:"not null;uniqueIndex:uq_closure_period,priority:2" json:"year" binding:"required"`
	Status          ClosureStatus   `gorm:"size:30;not null;default:DRAFT" json:"status"`
	ImportedAt      *time.Time      `json:"imported_at"`
	RecordCount     int             `gorm:"not null;default:0" json:"record_count"`
	TotalReceivable decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_receivable"`
	TotalPayable    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_payable"`
	Note            string          `gorm:"size:255" json:"note"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Reference renders the period as "MM/YYYY" for export descriptions.
func (p ClosurePeriod) Reference() string {
	return fmt.Sprintf("%02d/%d", p.Month, p.Year)
}

type NewClosurePeriod struct {
	Month int    `json:"month" binding:"required,min=1,max=12"`
	Year  int    `json:"year" binding:"required,min=2000,max=2100"`
	Note  string `json:"note"`
}

func CreateClosurePeriod(ctx context.Context, input *NewClosurePeriod) (*ClosurePeriod, error) {

	count, err := utils.ResourceCountWhere[ClosurePeriod](ctx, "month = ? AND year = ?", input.Month, input.Year)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrorDuplicatePeriod
	}

	db := config.GetDB()
	period := ClosurePeriod{
		Month:           input.Month,
		Year:            input.Year,
		Status:          ClosureStatusDraft,
		TotalReceivable: decimal.Zero,
		TotalPayable:    decimal.Zero,
		Note:            input.Note,
	}
	if err := db.WithContext(ctx).Create(&period).Error; err != nil {
		// concurrent create racing past the count check
		if utils.IsDuplicateKeyError(err) {
			return nil, ErrorDuplicatePeriod
		}
		return nil, err
	}

	return &period, nil
}

// UpdateClosureStatus advances the period status, guarded by the
// transition table.
func UpdateClosureStatus(ctx context.Context, id int, to ClosureStatus) (*ClosurePeriod, error) {

	if !to.IsValid() {
		return nil, errors.New("unknown status")
	}

	db := config.GetDB()
	period, err := utils.FetchModel[ClosurePeriod](ctx, id)
	if err != nil {
		return nil, err
	}
	if !period.Status.CanTransition(to) {
		return nil, ErrorInvalidTransition
	}
	if err := db.WithContext(ctx).Model(period).Update("Status", to).Error; err != nil {
		return nil, err
	}
	return period, nil
}

// DeleteClosurePeriod removes a period that was never imported into.
func DeleteClosurePeriod(ctx context.Context, id int) (*ClosurePeriod, error) {

	db := config.GetDB()
	period, err := utils.FetchModel[ClosurePeriod](ctx, id)
	if err != nil {
		return nil, err
	}
	if period.Status != ClosureStatusDraft {
		return nil, errors.New("only draft closures can be deleted")
	}
	if err = db.WithContext(ctx).Delete(period).Error; err != nil {
		return nil, err
	}
	return period, nil
}

func GetClosurePeriod(ctx context.Context, id int) (*ClosurePeriod, error) {
	return utils.FetchModel[ClosurePeriod](ctx, id)
}

type ClosureFilter struct {
	Year   int           `form:"year"`
	Status ClosureStatus `form:"status"`
	PageInput
}

func GetClosurePeriods(ctx context.Context, filter ClosureFilter) (*Paginated[ClosurePeriod], error) {
	db := config.GetDB()
	query := db.WithContext(ctx).Model(&ClosurePeriod{})
	if filter.Year != 0 {
		query = query.Where("year = ?", filter.Year)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	_, limit := filter.Normalized()
	var periods []*ClosurePeriod
	err := query.
		Order("year desc, month desc").
		Limit(limit).Offset(filter.Offset()).
		Find(&periods).Error
	if err != nil {
		return nil, err
	}
	return NewPaginated(periods, filter.PageInput, total), nil
}

type CounterpartySummary struct {
	Id    int             `json:"id"`
	Name  string          `json:"name"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type StatusSummary struct {
	Status InspectionStatus `json:"status"`
	Count  int              `json:"count"`
}

type ClosureSummary struct {
	Period      *ClosurePeriod        `json:"period"`
	ByAgency    []CounterpartySummary `json:"by_agency"`
	ByInspector []CounterpartySummary `json:"by_inspector"`
	ByStatus    []StatusSummary       `json:"by_status"`
}

// GetClosureSummary groups the period's records by agency, inspector and
// status with running totals.
func GetClosureSummary(ctx context.Context, id int) (*ClosureSummary, error) {
	period, err := utils.FetchModel[ClosurePeriod](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	summary := ClosureSummary{Period: period}

	err = db.WithContext(ctx).Model(&InspectionRecord{}).
		Select("agencies.id as id, agencies.name as name, COUNT(*) as count, COALESCE(SUM(inspection_records.receivable_amount), 0) as total").
		Joins("JOIN agencies ON agencies.id = inspection_records.agency_id").
		Where("inspection_records.closure_period_id = ?", id).
		Group("agencies.id, agencies.name").
		Order("agencies.name asc").
		Scan(&summary.ByAgency).Error
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).Model(&InspectionRecord{}).
		Select("inspectors.id as id, inspectors.name as name, COUNT(*) as count, COALESCE(SUM(inspection_records.payable_amount), 0) as total").
		Joins("JOIN inspectors ON inspectors.id = inspection_records.inspector_id").
		Where("inspection_records.closure_period_id = ?", id).
		Group("inspectors.id, inspectors.name").
		Order("inspectors.name asc").
		Scan(&summary.ByInspector).Error
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).Model(&InspectionRecord{}).
		Select("status, COUNT(*) as count").
		Where("closure_period_id = ?", id).
		Group("status").
		Scan(&summary.ByStatus).Error
	if err != nil {
		return nil, err
	}

	return &summary, nil
}
