package records

import "strings"

// Canonical header names. These double as the column names in full exports.
const (
	colCaseText          = "patient_case"
	colTrialID           = "trial_id"
	colRelevanceScore    = "relevance_score"
	colMatchedTerms      = "matched_terms"
	colTitle             = "trial_title"
	colPhase             = "trial_phase"
	colAgeRange          = "age_range"
	colDiseases          = "diseases_targeted"
	colInclusion         = "inclusion_criteria"
	colExclusion         = "exclusion_criteria"
	colPriorTherapies    = "prior_therapies"
	colGender            = "gender"
	colBriefSummary      = "brief_summary"
	colInterventions     = "interventions"
	colModelGrade        = "model_grade"
	colModelReasoning    = "model_reasoning"
	colJudgeAssessment   = "judge_assessment"
	colJudgeCorrectGrade = "judge_correct_grade"
	colJudgeExplanation  = "judge_explanation"
	colPatientDisease    = "patient_disease"
	colPatientBiomarkers = "patient_biomarkers"
	colPatientInclusion  = "patient_inclusion_criteria"
	colPatientExclusion  = "patient_exclusion_criteria"
	colPatientTherapies  = "patient_prior_therapies"
	colDiseaseStage      = "disease_stage"
	colLineOfTherapy     = "line_of_therapy"
	colPatientAge        = "patient_age"
	colAgeUnit           = "age_unit"
	colPatientSex        = "patient_sex"
	colPhasePreference   = "phase_preference"
	colHumanGrade        = "human_grade"
)

// fieldSpec ties a logical field to its canonical header, the header names
// older CSV schema versions used, and a positional fallback. Fallback -1
// marks an optional column that resolves to empty when its header is absent.
type fieldSpec struct {
	canonical string
	aliases   []string
	fallback  int
}

// fieldSpecs is the full header resolution table. The first twelve entries
// are the required legacy columns; their fallback positions are the fixed
// relative order those columns must appear in when header names are absent
// or unrecognized.
var fieldSpecs = []fieldSpec{
	{colCaseText, []string{"question", "case_text"}, 0},
	{colTrialID, []string{"nct_id", "nctid"}, 1},
	{colTitle, []string{"title"}, 2},
	{colPhase, []string{"phase"}, 3},
	{colAgeRange, []string{"age"}, 4},
	{colDiseases, []string{"diseases"}, 5},
	{colInclusion, []string{"inclusion"}, 6},
	{colExclusion, []string{"exclusion"}, 7},
	{colPriorTherapies, []string{"prior_therapy"}, 8},
	{colGender, []string{"sex_restriction"}, 9},
	{colModelGrade, []string{"grade"}, 10},
	{colHumanGrade, []string{"human grade"}, 11},

	{colRelevanceScore, []string{"score"}, -1},
	{colMatchedTerms, nil, -1},
	{colBriefSummary, []string{"summary"}, -1},
	{colInterventions, nil, -1},
	{colModelReasoning, []string{"reasoning"}, -1},
	{colJudgeAssessment, nil, -1},
	{colJudgeCorrectGrade, []string{"judge_grade"}, -1},
	{colJudgeExplanation, nil, -1},
	{colPatientDisease, nil, -1},
	{colPatientBiomarkers, nil, -1},
	{colPatientInclusion, nil, -1},
	{colPatientExclusion, nil, -1},
	{colPatientTherapies, nil, -1},
	{colDiseaseStage, nil, -1},
	{colLineOfTherapy, nil, -1},
	{colPatientAge, nil, -1},
	{colAgeUnit, nil, -1},
	{colPatientSex, nil, -1},
	{colPhasePreference, nil, -1},
}

// columnMap maps canonical field names to column positions for one CSV.
// Resolved once per parse so field access stays linear.
type columnMap map[string]int

// resolveColumns matches the header row against the resolution table.
// Header comparison is case-insensitive and whitespace-trimmed. Canonical
// name wins over aliases; aliases win over the positional fallback.
func resolveColumns(header []string) columnMap {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	find := func(name string) int {
		for i, h := range normalized {
			if h == name {
				return i
			}
		}
		return -1
	}

	cols := make(columnMap, len(fieldSpecs))
	for _, fs := range fieldSpecs {
		idx := find(fs.canonical)
		for _, alias := range fs.aliases {
			if idx >= 0 {
				break
			}
			idx = find(alias)
		}
		if idx < 0 {
			idx = fs.fallback
		}
		cols[fs.canonical] = idx
	}
	return cols
}

// field reads one resolved column from a row. Unresolved columns and rows
// shorter than the resolved position yield the empty string; a short row is
// never an error.
func (m columnMap) field(row []string, name string) string {
	i, ok := m[name]
	if !ok || i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
