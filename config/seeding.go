package config

import (
	"log"

	"github.com/hmztgr/salama-maintenance-system-sub002/models"
)

// SeedServiceCatalog inserts the fixed fire-safety service catalog.
// Existing rows are matched by code, so running on every startup is
// safe.
func SeedServiceCatalog() {
	defaultServices := []struct {
		Code        string
		Name        string
		Description string
	}{
		{Code: "fire_extinguisher", Name: "Fire Extinguisher Maintenance", Description: "Inspection, refill and replacement of portable fire extinguishers"},
		{Code: "alarm_system", Name: "Alarm System Maintenance", Description: "Fire alarm panel, detector and sounder servicing"},
		{Code: "fire_suppression", Name: "Fire Suppression System Maintenance", Description: "Sprinkler and suppression system inspection and servicing"},
		{Code: "gas_system", Name: "Gas Detection System Maintenance", Description: "Gas leak detection and shutoff system servicing"},
		{Code: "foam_system", Name: "Foam System Maintenance", Description: "Foam-based suppression system inspection and servicing"},
		{Code: "emergency_lighting", Name: "Emergency Lighting Maintenance", Description: "Exit signage and emergency lighting checks"},
	}

	for _, serviceData := range defaultServices {
		var service models.ServiceType
		err := DB.Where("code = ?", serviceData.Code).First(&service).Error

		if err != nil {
			service = models.ServiceType{
				Code:        serviceData.Code,
				Name:        serviceData.Name,
				Description: serviceData.Description,
				IsActive:    true,
			}
			if err := DB.Create(&service).Error; err != nil {
				log.Printf("Error creating service type %s: %v", serviceData.Name, err)
				continue
			}
			log.Printf("Created service type: %s (%s)", serviceData.Name, serviceData.Code)
		}
	}
}
