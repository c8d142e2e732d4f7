package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
	"github.com/shopspring/decimal"
)

// PriceTable is one receivable rate row: (agency, service type, optional
// area band) to base amount plus furnishing surcharges. Rows with a NULL
// band act as the fallback default for that agency/service pair.
type PriceTable struct {
	ID              int             `gorm:"primary_key" json:"id"`
	AgencyId        int             `gorm:"not null;index;uniqueIndex:uq_price_rate,priority:1" json:"agency_id" binding:"required"`
	ServiceTypeId   int             `gorm:"not null;uniqueIndex:uq_price_rate,priority:2" json:"service_type_id" binding:"required"`
	AreaBandId      *int            `gorm:"uniqueIndex:uq_price_rate,priority:3" json:"area_band_id"`
	BaseAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"base_amount"`
	FurnishedExtra  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"furnished_extra"`
	SemiFurnedExtra decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"semi_furnished_extra"`
	IsActive        *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Agency      *Agency      `json:"agency,omitempty"`
	ServiceType *ServiceType `json:"service_type,omitempty"`
	AreaBand    *AreaBand    `json:"area_band,omitempty"`
}

type NewPriceTable struct {
	AgencyId        int             `json:"agency_id" binding:"required"`
	ServiceTypeId   int             `json:"service_type_id" binding:"required"`
	AreaBandId      *int            `json:"area_band_id"`
	BaseAmount      decimal.Decimal `json:"base_amount"`
	FurnishedExtra  decimal.Decimal `json:"furnished_extra"`
	SemiFurnedExtra decimal.Decimal `json:"semi_furnished_extra"`
}

func (input *NewPriceTable) validate(ctx context.Context) error {
	if input.BaseAmount.IsNegative() {
		return errors.New("base amount must not be negative")
	}
	if err := utils.ValidateResourceId[Agency](ctx, input.AgencyId); err != nil {
		return errors.New("agency not found")
	}
	if err := utils.ValidateResourceId[ServiceType](ctx, input.ServiceTypeId); err != nil {
		return errors.New("service type not found")
	}
	if input.AreaBandId != nil {
		if err := utils.ValidateResourceId[AreaBand](ctx, *input.AreaBandId); err != nil {
			return errors.New("area band not found")
		}
	}
	return nil
}

func CreatePriceTable(ctx context.Context, input *NewPriceTable) (*PriceTable, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	db := config.GetDB()
	row := PriceTable{
		AgencyId:        input.AgencyId,
		ServiceTypeId:   input.ServiceTypeId,
		AreaBandId:      input.AreaBandId,
		BaseAmount:      input.BaseAmount,
		FurnishedExtra:  input.FurnishedExtra,
		SemiFurnedExtra: input.SemiFurnedExtra,
		IsActive:        utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}

	return &row, nil
}

func UpdatePriceTable(ctx context.Context, id int, input *NewPriceTable) (*PriceTable, error) {

	db := config.GetDB()
	row, err := utils.FetchModel[PriceTable](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Model(row).Updates(map[string]interface{}{
		"AgencyId":        input.AgencyId,
		"ServiceTypeId":   input.ServiceTypeId,
		"AreaBandId":      input.AreaBandId,
		"BaseAmount":      input.BaseAmount,
		"FurnishedExtra":  input.FurnishedExtra,
		"SemiFurnedExtra": input.SemiFurnedExtra,
	}).Error; err != nil {
		return nil, err
	}

	return row, nil
}

func DeletePriceTable(ctx context.Context, id int) (*PriceTable, error) {

	db := config.GetDB()
	row, err := utils.FetchModel[PriceTable](ctx, id)
	if err != nil {
		return nil, err
	}
	if err = db.WithContext(ctx).Delete(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func GetPriceTable(ctx context.Context, id int) (*PriceTable, error) {
	return utils.FetchModel[PriceTable](ctx, id, "Agency", "ServiceType", "AreaBand")
}

// GetPriceTablesByAgency lists the active rate rows for one agency.
func GetPriceTablesByAgency(ctx context.Context, agencyId int) ([]*PriceTable, error) {
	db := config.GetDB()
	var rows []*PriceTable
	err := db.WithContext(ctx).
		Preload("ServiceType").Preload("AreaBand").
		Where("agency_id = ?", agencyId).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
