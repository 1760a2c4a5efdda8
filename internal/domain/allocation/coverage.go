package allocation

// Coverage — дни покрытия после поставки за вычетом срока доставки.
func Coverage(totalAfterShipment int, velocity float64, p Params) float64 {
	if velocity <= 0 {
		return p.InfiniteCoverage
	}
	return float64(totalAfterShipment)/velocity - p.LeadTimeDays
}

func RiskFor(days float64, p Params) Risk {
	switch {
	case days <= p.HighRiskDays:
		return RiskHigh
	case days <= p.MediumRiskDays:
		return RiskMedium
	}
	return RiskLow
}

// classify дописывает в результат покрытие и риск.
func classify(r *Result, p Params) {
	r.TotalAfterShipment = r.Line.CurrentAvailable + r.Fulfillable + r.Line.ScheduledQty
	r.DaysOfCoverage = Coverage(r.TotalAfterShipment, r.Line.DailyVelocity, p)
	r.BackorderRisk = RiskFor(r.DaysOfCoverage, p)
}
