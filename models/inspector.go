package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
)

// Inspector performs inspections and is owed payables. KsiName is the
// external-system natural key matched case-insensitively during import.
type Inspector struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:150;not null" json:"name" binding:"required"`
	KsiName   string    `gorm:"size:150;not null;uniqueIndex" json:"ksi_name"`
	Cpf       string    `gorm:"size:15" json:"cpf"`
	Email     string    `gorm:"size:100" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Whatsapp  string    `gorm:"size:20" json:"whatsapp"`
	City      string    `gorm:"size:100" json:"city"`
	PixKey    string    `gorm:"size:100" json:"pix_key"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	PayoutTables []PayoutTable `gorm:"foreignKey:InspectorId" json:"payout_tables,omitempty"`
}

type NewInspector struct {
	Name     string `json:"name" binding:"required"`
	KsiName  string `json:"ksi_name"`
	Cpf      string `json:"cpf"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Whatsapp string `json:"whatsapp"`
	City     string `json:"city"`
	PixKey   string `json:"pix_key"`
}

func (input *NewInspector) validate(ctx context.Context, id int) error {
	if input.KsiName == "" {
		input.KsiName = input.Name
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return errors.New("invalid phone number")
		}
	}
	if err := utils.ValidateUnique[Inspector](ctx, "ksi_name", input.KsiName, id); err != nil {
		return err
	}
	return nil
}

func CreateInspector(ctx context.Context, input *NewInspector) (*Inspector, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	db := config.GetDB()
	inspector := Inspector{
		Name:     input.Name,
		KsiName:  input.KsiName,
		Cpf:      input.Cpf,
		Email:    input.Email,
		Phone:    input.Phone,
		Whatsapp: input.Whatsapp,
		City:     input.City,
		PixKey:   input.PixKey,
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&inspector).Error; err != nil {
		return nil, err
	}

	return &inspector, nil
}

func UpdateInspector(ctx context.Context, id int, input *NewInspector) (*Inspector, error) {

	db := config.GetDB()
	inspector, err := utils.FetchModel[Inspector](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Model(inspector).Updates(map[string]interface{}{
		"Name":     input.Name,
		"KsiName":  input.KsiName,
		"Cpf":      input.Cpf,
		"Email":    input.Email,
		"Phone":    input.Phone,
		"Whatsapp": input.Whatsapp,
		"City":     input.City,
		"PixKey":   input.PixKey,
	}).Error; err != nil {
		return nil, err
	}

	return inspector, nil
}

func DeleteInspector(ctx context.Context, id int) (*Inspector, error) {

	db := config.GetDB()
	inspector, err := utils.FetchModel[Inspector](ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[InspectionRecord](ctx, "inspector_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("inspector has inspection records")
	}
	if err = db.WithContext(ctx).Delete(inspector).Error; err != nil {
		return nil, err
	}
	return inspector, nil
}

func ToggleActiveInspector(ctx context.Context, id int, isActive bool) (*Inspector, error) {
	db := config.GetDB()
	inspector, err := utils.FetchModel[Inspector](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(inspector).Update("IsActive", isActive).Error; err != nil {
		return nil, err
	}
	return inspector, nil
}

func GetInspector(ctx context.Context, id int) (*Inspector, error) {
	return utils.FetchModel[Inspector](ctx, id, "PayoutTables", "PayoutTables.ServiceType", "PayoutTables.AreaBand")
}

func GetInspectors(ctx context.Context) ([]*Inspector, error) {
	return utils.FetchAllModels[Inspector](ctx)
}

// FindInspectorByKsiName does a case-insensitive lookup on the external key.
func FindInspectorByKsiName(ctx context.Context, ksiName string) (*Inspector, error) {
	db := config.GetDB()
	var inspector Inspector
	err := db.WithContext(ctx).
		Where("LOWER(ksi_name) = ?", strings.ToLower(strings.TrimSpace(ksiName))).
		First(&inspector).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &inspector, nil
}
