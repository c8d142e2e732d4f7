package models

import (
	"context"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
	"github.com/shopspring/decimal"
)

// InspectionRecord is one inspection job inside a closure period. Created
// by import, amounts filled in by calculation. KsiId is the external id
// from the spreadsheet feed.
type InspectionRecord struct {
	ID              int              `gorm:"primary_key" json:"id"`
	ClosurePeriodId int              `gorm:"not null;index" json:"closure_period_id"`
	AgencyId        int              `gorm:"not null;index" json:"agency_id"`
	InspectorId     int              `gorm:"not null;index" json:"inspector_id"`
	ServiceTypeId   *int             `gorm:"index" json:"service_type_id"`
	AreaBandId      *int             `json:"area_band_id"`
	KsiId           string           `gorm:"size:50;not null;index" json:"ksi_id"`
	ContractNumber  string           `gorm:"size:50" json:"contract_number"`
	Address         string           `gorm:"size:255" json:"address"`
	City            string           `gorm:"size:100" json:"city"`
	InformedArea    *decimal.Decimal `gorm:"type:decimal(10,2)" json:"informed_area"`
	MeasuredArea    *decimal.Decimal `gorm:"type:decimal(10,2)" json:"measured_area"`
	BillableArea    decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"billable_area"`
	Furnishing      FurnishingType   `gorm:"type:enum('NONE', 'SEMI', 'FULL');default:NONE" json:"furnishing"`
	ScheduledAt     *time.Time       `json:"scheduled_at"`
	FinishedAt      *time.Time       `json:"finished_at"`
	ReceivableAmt   decimal.Decimal  `gorm:"column:receivable_amount;type:decimal(12,2);not null;default:0" json:"receivable_amount"`
	PayableAmt      decimal.Decimal  `gorm:"column:payable_amount;type:decimal(12,2);not null;default:0" json:"payable_amount"`
	Status          InspectionStatus `gorm:"size:20;not null;default:IMPORTED" json:"status"`
	Note            string           `gorm:"size:255" json:"note"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`

	ClosurePeriod *ClosurePeriod `json:"closure_period,omitempty"`
	Agency        *Agency        `json:"agency,omitempty"`
	Inspector     *Inspector     `json:"inspector,omitempty"`
	ServiceType   *ServiceType   `json:"service_type,omitempty"`
	AreaBand      *AreaBand      `json:"area_band,omitempty"`
}

type UpdateInspectionInput struct {
	MeasuredArea *decimal.Decimal `json:"measured_area"`
	BillableArea *decimal.Decimal `json:"billable_area"`
	Furnishing   FurnishingType   `json:"furnishing"`
	Note         *string          `json:"note"`
	Status       InspectionStatus `json:"status"`
}

func GetInspection(ctx context.Context, id int) (*InspectionRecord, error) {
	return utils.FetchModel[InspectionRecord](ctx, id, "Agency", "Inspector", "ServiceType", "AreaBand")
}

// UpdateInspection edits the mutable fields of one record. Status changes
// are guarded by the transition table.
func UpdateInspection(ctx context.Context, id int, input *UpdateInspectionInput) (*InspectionRecord, error) {

	db := config.GetDB()
	record, err := utils.FetchModel[InspectionRecord](ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.MeasuredArea != nil {
		updates["MeasuredArea"] = input.MeasuredArea
	}
	if input.BillableArea != nil {
		updates["BillableArea"] = input.BillableArea
	}
	if input.Furnishing != "" {
		updates["Furnishing"] = input.Furnishing
	}
	if input.Note != nil {
		updates["Note"] = *input.Note
	}
	if input.Status != "" {
		if !record.Status.CanTransition(input.Status) {
			return nil, ErrorInvalidTransition
		}
		updates["Status"] = input.Status
	}
	if len(updates) == 0 {
		return record, nil
	}

	if err := db.WithContext(ctx).Model(record).Updates(updates).Error; err != nil {
		return nil, err
	}
	return record, nil
}

type InspectionFilter struct {
	AgencyId    int              `form:"agency_id"`
	InspectorId int              `form:"inspector_id"`
	Status      InspectionStatus `form:"status"`
	City        string           `form:"city"`
	PageInput
}

// GetClosureInspections lists the records of one closure with optional
// filters, paginated.
func GetClosureInspections(ctx context.Context, closureId int, filter InspectionFilter) (*Paginated[InspectionRecord], error) {

	if err := utils.ValidateResourceId[ClosurePeriod](ctx, closureId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	query := db.WithContext(ctx).Model(&InspectionRecord{}).
		Where("closure_period_id = ?", closureId)
	if filter.AgencyId != 0 {
		query = query.Where("agency_id = ?", filter.AgencyId)
	}
	if filter.InspectorId != 0 {
		query = query.Where("inspector_id = ?", filter.InspectorId)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.City != "" {
		query = query.Where("city LIKE ?", "%"+filter.City+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	_, limit := filter.Normalized()
	var records []*InspectionRecord
	err := query.
		Preload("Agency").Preload("Inspector").Preload("ServiceType").
		Order("id asc").
		Limit(limit).Offset(filter.Offset()).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return NewPaginated(records, filter.PageInput, total), nil
}
