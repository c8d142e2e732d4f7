package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
	"github.com/shopspring/decimal"
)

// PayoutTable is one payable rate row: (inspector, service type, optional
// area band) to base amount plus furnishing surcharges. Resolution rules
// mirror PriceTable.
type PayoutTable struct {
	ID              int             `gorm:"primary_key" json:"id"`
	InspectorId     int             `gorm:"not null;index;uniqueIndex:uq_payout_rate,priority:1" json:"inspector_id" binding:"required"`
	ServiceTypeId   int             `gorm:"not null;uniqueIndex:uq_payout_rate,priority:2" json:"service_type_id" binding:"required"`
	AreaBandId      *int            `gorm:"uniqueIndex:uq_payout_rate,priority:3" json:"area_band_id"`
	BaseAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"base_amount"`
	FurnishedExtra  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"furnished_extra"`
	SemiFurnedExtra decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"semi_furnished_extra"`
	IsActive        *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Inspector   *Inspector   `json:"inspector,omitempty"`
	ServiceType *ServiceType `json:"service_type,omitempty"`
	AreaBand    *AreaBand    `json:"area_band,omitempty"`
}

type NewPayoutTable struct {
	InspectorId     int             `json:"inspector_id" binding:"required"`
	ServiceTypeId   int             `json:"service_type_id" binding:"required"`
	AreaBandId      *int            `json:"area_band_id"`
	BaseAmount      decimal.Decimal `json:"base_amount"`
	FurnishedExtra  decimal.Decimal `json:"furnished_extra"`
	SemiFurnedExtra decimal.Decimal `json:"semi_furnished_extra"`
}

func (input *NewPayoutTable) validate(ctx context.Context) error {
	if input.BaseAmount.IsNegative() {
		return errors.New("base amount must not be negative")
	}
	if err := utils.ValidateResourceId[Inspector](ctx, input.InspectorId); err != nil {
		return errors.New("inspector not found")
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

func CreatePayoutTable(ctx context.Context, input *NewPayoutTable) (*PayoutTable, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	db := config.GetDB()
	row := PayoutTable{
		InspectorId:     input.InspectorId,
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

func UpdatePayoutTable(ctx context.Context, id int, input *NewPayoutTable) (*PayoutTable, error) {

	db := config.GetDB()
	row, err := utils.FetchModel[PayoutTable](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Model(row).Updates(map[string]interface{}{
		"InspectorId":     input.InspectorId,
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

func DeletePayoutTable(ctx context.Context, id int) (*PayoutTable, error) {

	db := config.GetDB()
	row, err := utils.FetchModel[PayoutTable](ctx, id)
	if err != nil {
		return nil, err
	}
	if err = db.WithContext(ctx).Delete(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func GetPayoutTable(ctx context.Context, id int) (*PayoutTable, error) {
	return utils.FetchModel[PayoutTable](ctx, id, "Inspector", "ServiceType", "AreaBand")
}

// GetPayoutTablesByInspector lists the active rate rows for one inspector.
func GetPayoutTablesByInspector(ctx context.Context, inspectorId int) ([]*PayoutTable, error) {
	db := config.GetDB()
	var rows []*PayoutTable
	err := db.WithContext(ctx).
		Preload("ServiceType").Preload("AreaBand").
		Where("inspector_id = ?", inspectorId).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
