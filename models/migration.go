package models

import (
	"log"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&User{},
		&Agency{}, &Inspector{},
		&ServiceType{}, &AreaBand{},
		&PriceTable{}, &PayoutTable{},
		&ClosurePeriod{}, &InspectionRecord{},
		&JobRun{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
