package api

import (
	"fmt"

	"ridepool/internal/darp"
	"ridepool/internal/model"
)

func validateSolveParams(p *model.SolveParams) error {
	if p == nil {
		return nil
	}
	if p.Alpha != 0 && p.Alpha <= 1 {
		return fmt.Errorf("alpha must be > 1")
	}
	if p.Beta < 0 || p.Beta > 1 {
		return fmt.Errorf("beta must be in [0,1]")
	}
	if p.Capacity < 0 {
		return fmt.Errorf("capacity must be >= 1")
	}
	if p.SpeedKph < 0 {
		return fmt.Errorf("speedKph must be > 0")
	}
	if p.InsertionMethod != "" {
		if _, ok := darp.ParseStrategy(p.InsertionMethod); !ok {
			return fmt.Errorf("invalid insertionMethod: %s (allowed: IA, IB)", p.InsertionMethod)
		}
	}
	if p.TimeBudgetMs < 0 {
		return fmt.Errorf("timeBudgetMs must be >= 0")
	}
	if p.MarginMin < 0 {
		return fmt.Errorf("timeWindowMin must be >= 0")
	}
	if p.SwapFraction < 0 || p.SwapFraction > 1 {
		return fmt.Errorf("swapFraction must be in [0,1]")
	}
	return nil
}

func validateRecords(records []model.TripRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("records must not be empty")
	}
	for i, rec := range records {
		if rec.RequestedAt < 0 || rec.RequestedAt >= 24*3600 {
			return fmt.Errorf("record %d: requestedAt must be seconds since midnight", i)
		}
		if rec.PickupLat < -90 || rec.PickupLat > 90 || rec.DropoffLat < -90 || rec.DropoffLat > 90 {
			return fmt.Errorf("record %d: latitude out of range", i)
		}
		if rec.PickupLon < -180 || rec.PickupLon > 180 || rec.DropoffLon < -180 || rec.DropoffLon > 180 {
			return fmt.Errorf("record %d: longitude out of range", i)
		}
	}
	return nil
}
