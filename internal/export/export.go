// Package export renders finalized reviews as CSV for downstream tooling.
// The lenient parsing dialect applies to ingestion only; exports use
// standard CSV quoting.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/clinmatch/trialaudit/internal/records"
	"github.com/clinmatch/trialaudit/internal/review"
)

var simpleHeader = []string{"patient_case", "trial_id", "human_grade", "notes"}

var fullHeader = []string{
	"patient_case", "trial_id",
	"relevance_score", "matched_terms",
	"trial_title", "trial_phase", "age_range", "diseases_targeted",
	"inclusion_criteria", "exclusion_criteria", "prior_therapies", "gender",
	"brief_summary", "interventions",
	"model_grade", "model_reasoning",
	"judge_assessment", "judge_correct_grade", "judge_explanation",
	"patient_disease", "patient_biomarkers",
	"patient_inclusion_criteria", "patient_exclusion_criteria",
	"patient_prior_therapies", "disease_stage", "line_of_therapy",
	"patient_age", "age_unit", "patient_sex", "phase_preference",
	"human_grade", "review_status", "notes", "reviewed_at",
}

// WriteSimple writes the compact export: one row per finalized review with
// case text, trial id, human grade, and notes.
func WriteSimple(w io.Writer, reviews []review.ReviewedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(simpleHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range reviews {
		row := []string{r.Record.CaseText, r.Record.TrialID, r.HumanGrade, r.Comments}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFull writes the complete export: every original record field plus the
// review outcome. Descriptive trial fields come from the original parsed
// record matched by identity in the index, never from the review snapshot,
// so fields the snapshot does not carry are not emitted blank. Reviews with
// no matching record in the loaded CSV fall back to the snapshot.
func WriteFull(w io.Writer, reviews []review.ReviewedRecord, index *records.CaseIndex) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(fullHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range reviews {
		rec := r.Record
		if index != nil {
			if orig, ok := index.Find(rec.TrialID, rec.CaseText); ok {
				rec = *orig
			}
		}
		row := recordRow(rec)
		row = append(row, r.HumanGrade, r.ReviewStatus, r.Comments, r.ReviewedAt.UTC().Format(time.RFC3339))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// recordRow lists the record fields in fullHeader order.
func recordRow(rec records.TrialGradingRecord) []string {
	return []string{
		rec.CaseText, rec.TrialID,
		rec.RelevanceScore, rec.MatchedTerms,
		rec.Title, rec.Phase, rec.AgeRange, rec.Diseases,
		rec.InclusionCriteria, rec.ExclusionCriteria, rec.PriorTherapies, rec.Gender,
		rec.BriefSummary, rec.Interventions,
		rec.ModelGrade, rec.ModelReasoning,
		rec.JudgeAssessment, rec.JudgeCorrectGrade, rec.JudgeExplanation,
		rec.PatientDisease, rec.PatientBiomarkers,
		rec.PatientInclusion, rec.PatientExclusion,
		rec.PatientPriorTherapies, rec.PatientDiseaseStage, rec.PatientLineOfTherapy,
		rec.PatientAge, rec.PatientAgeUnit, rec.PatientSex, rec.PatientPhasePreference,
	}
}
