package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
)

// Agency is a counterparty that orders inspections and owes receivables.
// KsiName is the external-system natural key used to match rows during
// spreadsheet import (case-insensitive).
type Agency struct {
	ID            int           `gorm:"primary_key" json:"id"`
	Name          string        `gorm:"size:150;not null" json:"name" binding:"required"`
	KsiName       string        `gorm:"size:150;not null;uniqueIndex" json:"ksi_name"`
	Cnpj          string        `gorm:"size:20" json:"cnpj"`
	Email         string        `gorm:"size:100" json:"email"`
	Phone         string        `gorm:"size:20" json:"phone"`
	Whatsapp      string        `gorm:"size:20" json:"whatsapp"`
	City          string        `gorm:"size:100" json:"city"`
	PaymentDay    int           `gorm:"not null;default:10" json:"payment_day"`
	PaymentMethod PaymentMethod `gorm:"type:enum('BOLETO', 'PIX', 'TRANSFER');default:BOLETO" json:"payment_method"`
	IsActive      *bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime" json:"updated_at"`

	PriceTables []PriceTable `gorm:"foreignKey:AgencyId" json:"price_tables,omitempty"`
}

type NewAgency struct {
	Name          string        `json:"name" binding:"required"`
	KsiName       string        `json:"ksi_name"`
	Cnpj          string        `json:"cnpj"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	Whatsapp      string        `json:"whatsapp"`
	City          string        `json:"city"`
	PaymentDay    int           `json:"payment_day"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

func (input *NewAgency) validate(ctx context.Context, id int) error {
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
	if input.PaymentDay < 0 || input.PaymentDay > 31 {
		return errors.New("invalid payment day")
	}
	if err := utils.ValidateUnique[Agency](ctx, "ksi_name", input.KsiName, id); err != nil {
		return err
	}
	return nil
}

func CreateAgency(ctx context.Context, input *NewAgency) (*Agency, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	paymentDay := input.PaymentDay
	if paymentDay == 0 {
		paymentDay = 10
	}
	paymentMethod := input.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = PaymentMethodBoleto
	}

	db := config.GetDB()
	agency := Agency{
		Name:          input.Name,
		KsiName:       input.KsiName,
		Cnpj:          input.Cnpj,
		Email:         input.Email,
		Phone:         input.Phone,
		Whatsapp:      input.Whatsapp,
		City:          input.City,
		PaymentDay:    paymentDay,
		PaymentMethod: paymentMethod,
		IsActive:      utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&agency).Error; err != nil {
		return nil, err
	}

	return &agency, nil
}

func UpdateAgency(ctx context.Context, id int, input *NewAgency) (*Agency, error) {

	db := config.GetDB()
	agency, err := utils.FetchModel[Agency](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"Name":     input.Name,
		"KsiName":  input.KsiName,
		"Cnpj":     input.Cnpj,
		"Email":    input.Email,
		"Phone":    input.Phone,
		"Whatsapp": input.Whatsapp,
		"City":     input.City,
	}
	if input.PaymentDay != 0 {
		updates["PaymentDay"] = input.PaymentDay
	}
	if input.PaymentMethod != "" {
		updates["PaymentMethod"] = input.PaymentMethod
	}
	if err := db.WithContext(ctx).Model(agency).Updates(updates).Error; err != nil {
		return nil, err
	}

	return agency, nil
}

func DeleteAgency(ctx context.Context, id int) (*Agency, error) {

	db := config.GetDB()
	agency, err := utils.FetchModel[Agency](ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[InspectionRecord](ctx, "agency_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("agency has inspection records")
	}
	if err = db.WithContext(ctx).Delete(agency).Error; err != nil {
		return nil, err
	}
	return agency, nil
}

func ToggleActiveAgency(ctx context.Context, id int, isActive bool) (*Agency, error) {
	db := config.GetDB()
	agency, err := utils.FetchModel[Agency](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(agency).Update("IsActive", isActive).Error; err != nil {
		return nil, err
	}
	return agency, nil
}

func GetAgency(ctx context.Context, id int) (*Agency, error) {
	return utils.FetchModel[Agency](ctx, id, "PriceTables", "PriceTables.ServiceType", "PriceTables.AreaBand")
}

func GetAgencies(ctx context.Context) ([]*Agency, error) {
	return utils.FetchAllModels[Agency](ctx)
}

// FindAgencyByKsiName does a case-insensitive lookup on the external key.
func FindAgencyByKsiName(ctx context.Context, ksiName string) (*Agency, error) {
	db := config.GetDB()
	var agency Agency
	err := db.WithContext(ctx).
		Where("LOWER(ksi_name) = ?", strings.ToLower(strings.TrimSpace(ksiName))).
		First(&agency).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &agency, nil
}
