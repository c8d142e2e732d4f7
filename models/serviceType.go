package models

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
)

// ServiceType is a catalog entry keyed by a short numeric-like code
// ("1.0", "2.0", ...). Import may create entries from free-text labels.
type ServiceType struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Code        string    `gorm:"size:20;not null;uniqueIndex" json:"code" binding:"required"`
	Name        string    `gorm:"size:150;not null" json:"name" binding:"required"`
	Description string    `gorm:"size:255" json:"description"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewServiceType struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

var serviceLabelPattern = regexp.MustCompile(`^(\d+\.?\d*)\s*[-–]\s*(.+)`)

// ParseServiceTypeLabel splits a free-text label like "1.0 - ENTRY
// INSPECTION" into code and name. Labels without a separator use the
// first 10 characters as code and the whole label as name.
func ParseServiceTypeLabel(label string) (code string, name string) {
	label = strings.TrimSpace(label)
	if m := serviceLabelPattern.FindStringSubmatch(label); m != nil {
		return m[1], strings.TrimSpace(m[2])
	}
	code = label
	if len(code) > 10 {
		code = code[:10]
	}
	return code, label
}

func (input *NewServiceType) validate(ctx context.Context, id int) error {
	if err := utils.ValidateUnique[ServiceType](ctx, "code", input.Code, id); err != nil {
		return err
	}
	return nil
}

func CreateServiceType(ctx context.Context, input *NewServiceType) (*ServiceType, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	db := config.GetDB()
	serviceType := ServiceType{
		Code:        input.Code,
		Name:        input.Name,
		Description: input.Description,
		IsActive:    utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&serviceType).Error; err != nil {
		return nil, err
	}

	return &serviceType, nil
}

func UpdateServiceType(ctx context.Context, id int, input *NewServiceType) (*ServiceType, error) {

	db := config.GetDB()
	serviceType, err := utils.FetchModel[ServiceType](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Model(serviceType).Updates(map[string]interface{}{
		"Code":        input.Code,
		"Name":        input.Name,
		"Description": input.Description,
	}).Error; err != nil {
		return nil, err
	}

	return serviceType, nil
}

func DeleteServiceType(ctx context.Context, id int) (*ServiceType, error) {

	db := config.GetDB()
	serviceType, err := utils.FetchModel[ServiceType](ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[InspectionRecord](ctx, "service_type_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("service type has inspection records")
	}
	if err = db.WithContext(ctx).Delete(serviceType).Error; err != nil {
		return nil, err
	}
	return serviceType, nil
}

func GetServiceType(ctx context.Context, id int) (*ServiceType, error) {
	return utils.FetchModel[ServiceType](ctx, id)
}

func GetServiceTypes(ctx context.Context) ([]*ServiceType, error) {
	return utils.FetchAllModels[ServiceType](ctx)
}

// FindServiceTypeByCode does a case-insensitive lookup on the code.
func FindServiceTypeByCode(ctx context.Context, code string) (*ServiceType, error) {
	db := config.GetDB()
	var serviceType ServiceType
	err := db.WithContext(ctx).
		Where("LOWER(code) = ?", strings.ToLower(strings.TrimSpace(code))).
		First(&serviceType).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &serviceType, nil
}
