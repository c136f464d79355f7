package records

import "strings"

// Parse turns raw grading CSV text into the ordered record sequence. The
// first line is the header row; blank lines are skipped. There is no failure
// path: malformed rows degrade to empty-string fields and empty input yields
// an empty sequence.
func Parse(text string) []TrialGradingRecord {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	cols := resolveColumns(splitLine(strings.TrimSuffix(lines[0], "\r")))

	var recs []TrialGradingRecord
	for _, line := range lines[1:] {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		recs = append(recs, recordFromRow(cols, splitLine(line)))
	}
	return recs
}

// splitLine scans one CSV line left to right with a quote toggle: a comma
// inside quotes stays part of the field. Quote characters are stripped by
// removal rather than unescaped, so an RFC 4180 escaped quote ("") inside a
// quoted field loses both characters. That lenient dialect is what existing
// grading files were written against; do not tighten it without changing
// what those files mean.
func splitLine(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

func recordFromRow(cols columnMap, row []string) TrialGradingRecord {
	return TrialGradingRecord{
		CaseText:          cols.field(row, colCaseText),
		TrialID:           cols.field(row, colTrialID),
		RelevanceScore:    cols.field(row, colRelevanceScore),
		MatchedTerms:      cols.field(row, colMatchedTerms),
		Title:             cols.field(row, colTitle),
		Phase:             cols.field(row, colPhase),
		AgeRange:          cols.field(row, colAgeRange),
		Diseases:          cols.field(row, colDiseases),
		InclusionCriteria: cols.field(row, colInclusion),
		ExclusionCriteria: cols.field(row, colExclusion),
		PriorTherapies:    cols.field(row, colPriorTherapies),
		Gender:            cols.field(row, colGender),
		BriefSummary:      cols.field(row, colBriefSummary),
		Interventions:     cols.field(row, colInterventions),
		ModelGrade:        cols.field(row, colModelGrade),
		ModelReasoning:    cols.field(row, colModelReasoning),
		JudgeAssessment:   cols.field(row, colJudgeAssessment),
		JudgeCorrectGrade: cols.field(row, colJudgeCorrectGrade),
		JudgeExplanation:  cols.field(row, colJudgeExplanation),

		PatientDisease:         cols.field(row, colPatientDisease),
		PatientBiomarkers:      cols.field(row, colPatientBiomarkers),
		PatientInclusion:       cols.field(row, colPatientInclusion),
		PatientExclusion:       cols.field(row, colPatientExclusion),
		PatientPriorTherapies:  cols.field(row, colPatientTherapies),
		PatientDiseaseStage:    cols.field(row, colDiseaseStage),
		PatientLineOfTherapy:   cols.field(row, colLineOfTherapy),
		PatientAge:             cols.field(row, colPatientAge),
		PatientAgeUnit:         cols.field(row, colAgeUnit),
		PatientSex:             cols.field(row, colPatientSex),
		PatientPhasePreference: cols.field(row, colPhasePreference),

		HumanGrade: cols.field(row, colHumanGrade),
	}
}
