package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
	"github.com/shopspring/decimal"
)

// AreaBand maps a closed interval of billable area [MinArea, MaxArea] to a
// price multiplier. Bands are evaluated in ascending Position order.
type AreaBand struct {
	ID         int             `gorm:"primary_key" json:"id"`
	Name       string          `gorm:"size:100;not null" json:"name" binding:"required"`
	MinArea    int             `gorm:"not null" json:"min_area"`
	MaxArea    int             `gorm:"not null" json:"max_area"`
	Multiplier decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"multiplier"`
	Position   int             `gorm:"not null;default:0" json:"position"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Contains reports whether the area falls inside the band, inclusive on
// both ends.
func (b AreaBand) Contains(area decimal.Decimal) bool {
	min := decimal.NewFromInt(int64(b.MinArea))
	max := decimal.NewFromInt(int64(b.MaxArea))
	return area.GreaterThanOrEqual(min) && area.LessThanOrEqual(max)
}

type NewAreaBand struct {
	Name       string          `json:"name" binding:"required"`
	MinArea    int             `json:"min_area"`
	MaxArea    int             `json:"max_area"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Position   int             `json:"position"`
}

func (input *NewAreaBand) validate() error {
	if input.MinArea < 0 || input.MaxArea < input.MinArea {
		return errors.New("invalid area range")
	}
	if input.Multiplier.LessThanOrEqual(decimal.Zero) {
		return errors.New("multiplier must be positive")
	}
	return nil
}

func CreateAreaBand(ctx context.Context, input *NewAreaBand) (*AreaBand, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	db := config.GetDB()
	band := AreaBand{
		Name:       input.Name,
		MinArea:    input.MinArea,
		MaxArea:    input.MaxArea,
		Multiplier: input.Multiplier,
		Position:   input.Position,
	}
	if err := db.WithContext(ctx).Create(&band).Error; err != nil {
		return nil, err
	}

	return &band, nil
}

func UpdateAreaBand(ctx context.Context, id int, input *NewAreaBand) (*AreaBand, error) {

	db := config.GetDB()
	band, err := utils.FetchModel[AreaBand](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Model(band).Updates(map[string]interface{}{
		"Name":       input.Name,
		"MinArea":    input.MinArea,
		"MaxArea":    input.MaxArea,
		"Multiplier": input.Multiplier,
		"Position":   input.Position,
	}).Error; err != nil {
		return nil, err
	}

	return band, nil
}

func DeleteAreaBand(ctx context.Context, id int) (*AreaBand, error) {

	db := config.GetDB()
	band, err := utils.FetchModel[AreaBand](ctx, id)
	if err != nil {
		return nil, err
	}
	if err = db.WithContext(ctx).Delete(band).Error; err != nil {
		return nil, err
	}
	return band, nil
}

func GetAreaBand(ctx context.Context, id int) (*AreaBand, error) {
	return utils.FetchModel[AreaBand](ctx, id)
}

// GetAreaBands returns all bands in evaluation order.
func GetAreaBands(ctx context.Context) ([]*AreaBand, error) {
	db := config.GetDB()
	var bands []*AreaBand
	err := db.WithContext(ctx).Order("position asc").Find(&bands).Error
	if err != nil {
		return nil, err
	}
	return bands, nil
}
