package analyzer

// Aggregate keeps the dirty results in input order.
func Aggregate(results []AnalysisResult) Report {
	report := Report{Results: make([]AnalysisResult, 0)}
	for i := range results {
		if !results[i].Clean() {
			report.Results = append(report.Results, results[i])
		}
	}
	return report
}
