package model

import "time"

// AssessmentMode identifies which structured rubric an artifact assessment
// follows. The five modes are fixed; dashboards report per-mode completion
// counts keyed by these exact strings.
type AssessmentMode string

const (
	ModeStage1   AssessmentMode = "stage1"
	ModeSolid    AssessmentMode = "solid"
	ModeClone    AssessmentMode = "clone"
	ModeSnapshot AssessmentMode = "snapshot"
	ModeCustom   AssessmentMode = "custom"
)

// AllModes is the canonical mode set, in dashboard display order. Both the
// participant and researcher views iterate this one slice, so the two sides
// can never disagree about which modes exist.
var AllModes = []AssessmentMode{ModeStage1, ModeSolid, ModeClone, ModeSnapshot, ModeCustom}

// ValidMode reports whether s names a known assessment mode. The stored
// assessmentType column uses the same strings; "bug_stage" is accepted as the
// wire alias for stage1 kept for imported data.
func ValidMode(s string) bool {
	if s == "bug_stage" {
		return true
	}
	for _, m := range AllModes {
		if s == string(m) {
			return true
		}
	}
	return false
}

// NormalizeMode maps the wire alias onto the canonical mode identifier.
func NormalizeMode(s string) AssessmentMode {
	if s == "bug_stage" {
		return ModeStage1
	}
	return AssessmentMode(s)
}

// ArtifactAssessmentStatus: a draft can be edited; a submitted assessment is
// immutable and counts toward progress.
type ArtifactAssessmentStatus string

const (
	AssessmentDraft     ArtifactAssessmentStatus = "draft"
	AssessmentSubmitted ArtifactAssessmentStatus = "submitted"
)

// ArtifactAssessment is a structured rubric submission on one study artifact:
// a bug-stage walkthrough, SOLID review, clone check, snapshot comparison, or
// a custom rubric. Payload carries the mode-specific form body; Items are the
// per-line findings.
type ArtifactAssessment struct {
	ID              string                   `json:"id"              gorm:"primaryKey;size:20"`
	StudyID         string                   `json:"studyId"         gorm:"size:20;index;not null"`
	StudyArtifactID string                   `json:"studyArtifactId" gorm:"size:20;index;not null"`
	EnrollmentID    string                   `json:"enrollmentId"    gorm:"size:20;index"`
	EvaluatorUserID string                   `json:"evaluatorUserId" gorm:"size:20;index;not null"`
	AssessmentType  AssessmentMode           `json:"assessmentType"  gorm:"size:30;not null"`
	Status          ArtifactAssessmentStatus `json:"status"          gorm:"size:20;not null;default:'draft'"`
	Payload         JSONMap                  `json:"payload"         gorm:"type:jsonb"`
	SubmittedAt     *time.Time               `json:"submittedAt"`
	CreatedAt       time.Time                `json:"createdAt"`
	UpdatedAt       time.Time                `json:"updatedAt"`

	Items         []ArtifactAssessmentItem `json:"items,omitempty"         gorm:"foreignKey:AssessmentID"`
	StudyArtifact *StudyArtifact           `json:"studyArtifact,omitempty" gorm:"foreignKey:StudyArtifactID"`
}

// ArtifactAssessmentItem is one line finding inside an assessment (one bug,
// one principle violation, one clone pair, ...).
type ArtifactAssessmentItem struct {
	ID           string    `json:"id"           gorm:"primaryKey;size:20"`
	AssessmentID string    `json:"assessmentId" gorm:"size:20;index;not null"`
	Position     int       `json:"position"     gorm:"not null;default:0"`
	Label        string    `json:"label"        gorm:"size:300;not null"`
	Verdict      string    `json:"verdict"      gorm:"size:60"`
	Comment      string    `json:"comment"      gorm:"type:text"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ReviewStatus of a comparison during adjudication.
type ReviewStatus string

const (
	ReviewPending    ReviewStatus = "pending"
	ReviewAgreed     ReviewStatus = "agreed"
	ReviewOverridden ReviewStatus = "overridden"
)

// StudyComparison is a participant's head-to-head judgment between two study
// artifacts, plus the reviewer's adjudication of that judgment against ground
// truth.
type StudyComparison struct {
	ID              string       `json:"id"              gorm:"primaryKey;size:20"`
	StudyID         string       `json:"studyId"         gorm:"size:20;index;not null"`
	EvaluatorUserID string       `json:"evaluatorUserId" gorm:"size:20;index;not null"`
	LeftArtifactID  string       `json:"leftArtifactId"  gorm:"size:20;not null"`
	RightArtifactID string       `json:"rightArtifactId" gorm:"size:20;not null"`
	Choice          string       `json:"choice"          gorm:"size:20;not null"` // "left", "right", "tie"
	Confidence      int          `json:"confidence"      gorm:"not null;default:0"`
	Rationale       string       `json:"rationale"       gorm:"type:text"`
	ReviewStatus    ReviewStatus `json:"reviewStatus"    gorm:"size:20;not null;default:'pending'"`
	Decision        string       `json:"decision"        gorm:"size:20"`
	ReviewNotes     string       `json:"reviewNotes"     gorm:"type:text"`
	GroundTruth     JSONMap      `json:"groundTruth"     gorm:"type:jsonb"`
	SubmittedAt     time.Time    `json:"submittedAt"`
	ReviewedAt      *time.Time   `json:"reviewedAt"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}
