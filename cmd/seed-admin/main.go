// seed-admin creates the admin console user and the reference catalog
// (service types, area bands, sample agencies/inspectors with default rate
// tables). Existing rows are left untouched, so the tool is safe to rerun.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/models"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	adminEmail    = "admin@pratesvistorias.com.br"
	adminPassword = "admin123"
	adminName     = "Administrador"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	models.MigrateTable()

	if err := seedAdmin(ctx, db); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed admin user: %v\n", err)
		os.Exit(1)
	}
	if err := seedServiceTypes(ctx, db); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed service types: %v\n", err)
		os.Exit(1)
	}
	if err := seedAreaBands(ctx, db); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed area bands: %v\n", err)
		os.Exit(1)
	}
	if err := seedAgencies(ctx, db); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed agencies: %v\n", err)
		os.Exit(1)
	}
	if err := seedInspectors(ctx, db); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed inspectors: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("seed completed")
}

func seedAdmin(ctx context.Context, db *gorm.DB) error {
	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", adminEmail).First(&existing).Error
	if err == nil {
		fmt.Println("admin user already exists:", adminEmail)
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	hashed, err := utils.HashPassword(adminPassword)
	if err != nil {
		return err
	}
	user := models.User{
		Name:     adminName,
		Email:    adminEmail,
		Password: string(hashed),
		Role:     models.UserRoleAdmin,
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return err
	}
	fmt.Println("admin user created:", adminEmail)
	return nil
}

func seedServiceTypes(ctx context.Context, db *gorm.DB) error {
	serviceTypes := []models.ServiceType{
		{Code: "1.0", Name: "VISTORIA DE ENTRADA", Description: "Vistoria realizada na entrada do inquilino"},
		{Code: "2.0", Name: "VISTORIA DE SAÍDA", Description: "Vistoria realizada na saída do inquilino"},
		{Code: "3.0", Name: "VISTORIA DE CONFERÊNCIA", Description: "Vistoria de conferência de imóvel"},
		{Code: "4.0", Name: "VISTORIA CAUTELAR", Description: "Vistoria cautelar"},
		{Code: "5.0", Name: "LAUDO TÉCNICO", Description: "Elaboração de laudo técnico"},
	}
	for _, serviceType := range serviceTypes {
		serviceType.IsActive = utils.NewTrue()
		var count int64
		if err := db.WithContext(ctx).Model(&models.ServiceType{}).Where("code = ?", serviceType.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.WithContext(ctx).Create(&serviceType).Error; err != nil {
			return err
		}
	}
	fmt.Println("service types seeded")
	return nil
}

func seedAreaBands(ctx context.Context, db *gorm.DB) error {
	bands := []models.AreaBand{
		{Name: "Até 150 m²", MinArea: 0, MaxArea: 150, Multiplier: decimal.NewFromFloat(1.0), Position: 1},
		{Name: "151 até 225 m²", MinArea: 151, MaxArea: 225, Multiplier: decimal.NewFromFloat(1.5), Position: 2},
		{Name: "226 até 300 m²", MinArea: 226, MaxArea: 300, Multiplier: decimal.NewFromFloat(2.0), Position: 3},
		{Name: "301 até 375 m²", MinArea: 301, MaxArea: 375, Multiplier: decimal.NewFromFloat(2.5), Position: 4},
		{Name: "376 até 450 m²", MinArea: 376, MaxArea: 450, Multiplier: decimal.NewFromFloat(3.0), Position: 5},
		{Name: "451 até 525 m²", MinArea: 451, MaxArea: 525, Multiplier: decimal.NewFromFloat(3.5), Position: 6},
		{Name: "526 até 600 m²", MinArea: 526, MaxArea: 600, Multiplier: decimal.NewFromFloat(4.0), Position: 7},
		{Name: "Acima de 600 m²", MinArea: 601, MaxArea: 999999, Multiplier: decimal.NewFromFloat(5.0), Position: 8},
	}
	for _, band := range bands {
		var count int64
		if err := db.WithContext(ctx).Model(&models.AreaBand{}).Where("position = ?", band.Position).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.WithContext(ctx).Create(&band).Error; err != nil {
			return err
		}
	}
	fmt.Println("area bands seeded")
	return nil
}

// default rate rows use the first band so lookups always have a banded row
func seedAgencies(ctx context.Context, db *gorm.DB) error {
	agencies := []models.Agency{
		{Name: "Imobiliária Central", KsiName: "IMOBILIARIA CENTRAL", City: "São Paulo", PaymentDay: 10},
		{Name: "Imóveis Plus", KsiName: "IMOVEIS PLUS", City: "Campinas", PaymentDay: 15},
		{Name: "Casa Nova Imóveis", KsiName: "CASA NOVA IMOVEIS", City: "Santos", PaymentDay: 12},
	}

	entryType, exitType, defaultBand, err := lookupRateRefs(ctx, db)
	if err != nil {
		return err
	}

	for _, agency := range agencies {
		agency.PaymentMethod = models.PaymentMethodBoleto
		agency.IsActive = utils.NewTrue()

		var existing models.Agency
		err := db.WithContext(ctx).Where("ksi_name = ?", agency.KsiName).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := db.WithContext(ctx).Create(&agency).Error; err != nil {
				return err
			}
			existing = agency
		} else if err != nil {
			return err
		}

		rates := []models.PriceTable{
			{AgencyId: existing.ID, ServiceTypeId: entryType, AreaBandId: defaultBand,
				BaseAmount:     decimal.NewFromInt(150),
				FurnishedExtra: decimal.NewFromInt(30), SemiFurnedExtra: decimal.NewFromInt(15)},
			{AgencyId: existing.ID, ServiceTypeId: exitType, AreaBandId: defaultBand,
				BaseAmount:     decimal.NewFromInt(180),
				FurnishedExtra: decimal.NewFromInt(40), SemiFurnedExtra: decimal.NewFromInt(20)},
		}
		for _, rate := range rates {
			rate.IsActive = utils.NewTrue()
			var count int64
			if err := db.WithContext(ctx).Model(&models.PriceTable{}).
				Where("agency_id = ? AND service_type_id = ?", rate.AgencyId, rate.ServiceTypeId).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if err := db.WithContext(ctx).Create(&rate).Error; err != nil {
				return err
			}
		}
	}
	fmt.Println("agencies seeded")
	return nil
}

func seedInspectors(ctx context.Context, db *gorm.DB) error {
	inspectors := []models.Inspector{
		{Name: "João Silva", KsiName: "JOAO SILVA", City: "São Paulo", PixKey: "joao@email.com"},
		{Name: "Maria Santos", KsiName: "MARIA SANTOS", City: "Campinas", PixKey: "11999999999"},
		{Name: "Carlos Oliveira", KsiName: "CARLOS OLIVEIRA", City: "Santos", PixKey: "123.456.789-00"},
	}

	entryType, exitType, defaultBand, err := lookupRateRefs(ctx, db)
	if err != nil {
		return err
	}

	for _, inspector := range inspectors {
		inspector.IsActive = utils.NewTrue()

		var existing models.Inspector
		err := db.WithContext(ctx).Where("ksi_name = ?", inspector.KsiName).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := db.WithContext(ctx).Create(&inspector).Error; err != nil {
				return err
			}
			existing = inspector
		} else if err != nil {
			return err
		}

		rates := []models.PayoutTable{
			{InspectorId: existing.ID, ServiceTypeId: entryType, AreaBandId: defaultBand,
				BaseAmount:     decimal.NewFromInt(80),
				FurnishedExtra: decimal.NewFromInt(15), SemiFurnedExtra: decimal.NewFromInt(8)},
			{InspectorId: existing.ID, ServiceTypeId: exitType, AreaBandId: defaultBand,
				BaseAmount:     decimal.NewFromInt(100),
				FurnishedExtra: decimal.NewFromInt(20), SemiFurnedExtra: decimal.NewFromInt(10)},
		}
		for _, rate := range rates {
			rate.IsActive = utils.NewTrue()
			var count int64
			if err := db.WithContext(ctx).Model(&models.PayoutTable{}).
				Where("inspector_id = ? AND service_type_id = ?", rate.InspectorId, rate.ServiceTypeId).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if err := db.WithContext(ctx).Create(&rate).Error; err != nil {
				return err
			}
		}
	}
	fmt.Println("inspectors seeded")
	return nil
}

func lookupRateRefs(ctx context.Context, db *gorm.DB) (entryTypeId int, exitTypeId int, defaultBandId *int, err error) {
	var entryType models.ServiceType
	if err = db.WithContext(ctx).Where("code = ?", "1.0").First(&entryType).Error; err != nil {
		return
	}
	var exitType models.ServiceType
	if err = db.WithContext(ctx).Where("code = ?", "2.0").First(&exitType).Error; err != nil {
		return
	}
	var band models.AreaBand
	if err = db.WithContext(ctx).Order("position asc").First(&band).Error; err != nil {
		return
	}
	return entryType.ID, exitType.ID, &band.ID, nil
}
