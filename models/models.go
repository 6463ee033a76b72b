package models

// All lists every model for migrations
func All() []interface{} {
	return []interface{}{
		&Business{},
		&Provider{},
		&ProviderSpecialty{},
		&ServiceOffering{},
		&ServiceProviderExclusion{},
		&AvailabilityRule{},
		&BusinessHoliday{},
		&BusinessSpotLimits{},
		&Booking{},
		&RecurringSeries{},
		&Assignment{},
		&DeferredOccurrence{},
		&Notification{},
		&AuditLog{},
	}
}
