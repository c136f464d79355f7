package records

import "strings"

// TrialGradingRecord is one row of the grading CSV: a clinical trial graded
// against a patient case, with the automated grade, an optional judge second
// opinion, and the upstream-extracted patient profile passed through verbatim.
// All fields are strings; the parser does not validate their content.
type TrialGradingRecord struct {
	CaseText string `json:"case_text"`
	TrialID  string `json:"trial_id"`

	// Retrieval metadata.
	RelevanceScore string `json:"relevance_score"`
	MatchedTerms   string `json:"matched_terms"`

	// Trial descriptive fields.
	Title             string `json:"trial_title"`
	Phase             string `json:"trial_phase"`
	AgeRange          string `json:"age_range"`
	Diseases          string `json:"diseases_targeted"`
	InclusionCriteria string `json:"inclusion_criteria"`
	ExclusionCriteria string `json:"exclusion_criteria"`
	PriorTherapies    string `json:"prior_therapies"`
	Gender            string `json:"gender"`
	BriefSummary      string `json:"brief_summary"`
	Interventions     string `json:"interventions"`

	// The automated grade under audit (A-F, A best, or empty).
	ModelGrade     string `json:"model_grade"`
	ModelReasoning string `json:"model_reasoning"`

	// Optional second opinion; not authoritative.
	JudgeAssessment   string `json:"judge_assessment"`
	JudgeCorrectGrade string `json:"judge_correct_grade"`
	JudgeExplanation  string `json:"judge_explanation"`

	// Patient profile extracted upstream.
	PatientDisease         string `json:"patient_disease"`
	PatientBiomarkers      string `json:"patient_biomarkers"`
	PatientInclusion       string `json:"patient_inclusion_criteria"`
	PatientExclusion       string `json:"patient_exclusion_criteria"`
	PatientPriorTherapies  string `json:"patient_prior_therapies"`
	PatientDiseaseStage    string `json:"disease_stage"`
	PatientLineOfTherapy   string `json:"line_of_therapy"`
	PatientAge             string `json:"patient_age"`
	PatientAgeUnit         string `json:"age_unit"`
	PatientSex             string `json:"patient_sex"`
	PatientPhasePreference string `json:"phase_preference"`

	// A grade pre-seeded by upstream tooling, distinct from a reviewer's
	// live edit.
	HumanGrade string `json:"human_grade"`
}

// NormalizeCaseText collapses whitespace runs to single spaces and trims,
// so cosmetic formatting differences in the same case narrative do not
// split one case into two groups.
func NormalizeCaseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IdentityKey is the (trial, case) identity used by the review store and
// draft cache: "<trialId>::<normalizedCaseText>". An empty trial ID is
// legal but degrades matching; the parser never rejects it.
func IdentityKey(trialID, caseText string) string {
	return trialID + "::" + NormalizeCaseText(caseText)
}
