package service

import (
	"time"

	"github.com/studyweave/studyweave/internal/model"
)

// CTA kinds. Exactly one call-to-action is selected per enrollment;
// competency work always outranks artifact work.
const (
	CTAResumeCompetency = "resume_competency"
	CTAOpenArtifactTask = "open_artifact_task"
	CTAAllCaughtUp      = "all_caught_up"
)

// Competency status shown when no assignment exists for the enrollment.
const CompetencyNotAssigned = "not_assigned"

// CompetencyProgress is the competency fragment of a participant's dashboard
// payload. A missing assignment degrades to a neutral fragment rather than
// an error.
type CompetencyProgress struct {
	Status          string `json:"status"`
	Decision        string `json:"decision"`
	PercentComplete int    `json:"percentComplete"`
	ActionRequired  bool   `json:"actionRequired"`
}

// ModeProgress counts submitted assessments for one assessment mode.
type ModeProgress struct {
	Submitted       int        `json:"submitted"`
	LastSubmittedAt *time.Time `json:"lastSubmittedAt"`
}

// CTA tells the client what to surface as the participant's next step.
type CTA struct {
	Kind            string `json:"kind"`
	AssignmentID    string `json:"assignmentId,omitempty"`
	Mode            string `json:"mode,omitempty"`
	StudyArtifactID string `json:"studyArtifactId,omitempty"`
}

// ParticipantDetail is the aggregated view model for one enrollment, shared
// verbatim by the participant dashboard and the researcher's per-participant
// view so the two can never drift apart.
type ParticipantDetail struct {
	EnrollmentID        string                    `json:"enrollmentId"`
	StudyID             string                    `json:"studyId"`
	StudyTitle          string                    `json:"studyTitle"`
	ParticipationStatus model.ParticipationStatus `json:"participationStatus"`
	ProgressPercent     int                       `json:"progressPercent"`
	Competency          CompetencyProgress        `json:"competency"`
	ArtifactProgress    map[string]ModeProgress   `json:"artifactProgress"`
	CTA                 CTA                       `json:"cta"`
}

// FormatParticipantDetail folds one enrollment and its loaded associations
// into the dashboard view model.
//
// Completion is inferred, not only stored: an enrollment flagged completed OR
// holding at least one submitted artifact assessment reports completed at
// 100%, even when the stored status flag is a stale in_progress. Withdrawn
// enrollments are never promoted.
func FormatParticipantDetail(e *model.StudyParticipant) ParticipantDetail {
	detail := ParticipantDetail{
		EnrollmentID:        e.ID,
		StudyID:             e.StudyID,
		ParticipationStatus: e.ParticipationStatus,
		ProgressPercent:     clampPercent(e.ProgressPercent),
		Competency:          formatCompetency(e.CompetencyAssignment),
		ArtifactProgress:    formatArtifactProgress(e.ArtifactAssessments),
	}
	if e.Study != nil {
		detail.StudyTitle = e.Study.Title
	}

	completed := e.ParticipationStatus == model.ParticipationCompleted || hasSubmitted(e.ArtifactAssessments)
	if completed && e.ParticipationStatus != model.ParticipationWithdrawn {
		detail.ParticipationStatus = model.ParticipationCompleted
		if detail.ProgressPercent < 100 {
			detail.ProgressPercent = 100
		}
	}

	detail.CTA = selectCTA(e, detail.Competency, completed)
	return detail
}

func formatCompetency(a *model.CompetencyAssignment) CompetencyProgress {
	if a == nil {
		return CompetencyProgress{Status: CompetencyNotAssigned}
	}

	cp := CompetencyProgress{
		Status:   string(a.Status),
		Decision: a.Decision,
	}
	switch a.Status {
	case model.AssignmentPending:
		cp.ActionRequired = true
	case model.AssignmentInProgress:
		cp.ActionRequired = true
		cp.PercentComplete = answeredPercent(a)
	case model.AssignmentSubmitted, model.AssignmentReviewed:
		cp.PercentComplete = 100
	}
	return cp
}

// answeredPercent estimates in-progress completion from answered questions.
// Without the assessment loaded (or with an empty question set) it reports a
// flat 50 so the bar still shows movement.
func answeredPercent(a *model.CompetencyAssignment) int {
	if a.Assessment == nil || len(a.Assessment.Questions) == 0 {
		return 50
	}
	answered := 0
	for _, q := range a.Assessment.Questions {
		if _, ok := a.Answers[q.ID]; ok {
			answered++
		}
	}
	return clampPercent(answered * 100 / len(a.Assessment.Questions))
}

func formatArtifactProgress(assessments []model.ArtifactAssessment) map[string]ModeProgress {
	progress := make(map[string]ModeProgress, len(model.AllModes))
	for _, m := range model.AllModes {
		progress[string(m)] = ModeProgress{}
	}
	for i := range assessments {
		a := &assessments[i]
		if a.Status != model.AssessmentSubmitted {
			continue
		}
		key := string(model.NormalizeMode(string(a.AssessmentType)))
		mp := progress[key]
		mp.Submitted++
		if a.SubmittedAt != nil && (mp.LastSubmittedAt == nil || a.SubmittedAt.After(*mp.LastSubmittedAt)) {
			t := *a.SubmittedAt
			mp.LastSubmittedAt = &t
		}
		progress[key] = mp
	}
	return progress
}

func hasSubmitted(assessments []model.ArtifactAssessment) bool {
	for i := range assessments {
		if assessments[i].Status == model.AssessmentSubmitted {
			return true
		}
	}
	return false
}

// selectCTA picks exactly one next step. The next-assignment mode falls back
// from the enrollment pointer to the study default; both sides of the app
// consult the same model.AllModes set, custom included.
func selectCTA(e *model.StudyParticipant, cp CompetencyProgress, completed bool) CTA {
	if cp.ActionRequired {
		cta := CTA{Kind: CTAResumeCompetency}
		if e.CompetencyAssignment != nil {
			cta.AssignmentID = e.CompetencyAssignment.ID
		}
		return cta
	}
	if completed || e.ParticipationStatus == model.ParticipationWithdrawn {
		return CTA{Kind: CTAAllCaughtUp}
	}

	mode := e.NextMode
	if !model.ValidMode(mode) {
		mode = ""
	}
	if mode == "" && e.Study != nil {
		mode = e.Study.DefaultMode()
	}
	if mode == "" {
		mode = string(model.ModeStage1)
	}
	return CTA{
		Kind:            CTAOpenArtifactTask,
		Mode:            string(model.NormalizeMode(mode)),
		StudyArtifactID: e.NextStudyArtifactID,
	}
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
