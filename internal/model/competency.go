package model

import "time"

// CompetencyAssessment is a researcher-authored screening quiz. Participants
// must pass it (per the researcher's decision) before their study work counts.
type CompetencyAssessment struct {
	ID            string    `json:"id"            gorm:"primaryKey;size:20"`
	ResearcherID  string    `json:"researcherId"  gorm:"size:20;index;not null"`
	Title         string    `json:"title"         gorm:"size:300;not null"`
	Description   string    `json:"description"   gorm:"type:text"`
	PassThreshold float64   `json:"passThreshold" gorm:"not null;default:0"` // fraction of MCQs, 0..1
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	Questions []CompetencyQuestion `json:"questions,omitempty" gorm:"foreignKey:AssessmentID"`
}

// CompetencyQuestion is one multiple-choice question. Options is a JSON array
// of strings; CorrectIndex points into it. CorrectIndex of -1 marks a
// free-text question that is scored manually during review.
type CompetencyQuestion struct {
	ID           string    `json:"id"           gorm:"primaryKey;size:20"`
	AssessmentID string    `json:"assessmentId" gorm:"size:20;index;not null"`
	Prompt       string    `json:"prompt"       gorm:"type:text;not null"`
	Options      JSONMap   `json:"options"      gorm:"type:jsonb"`
	CorrectIndex int       `json:"correctIndex" gorm:"not null;default:-1"`
	Position     int       `json:"position"     gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AssignmentStatus is the per-participant attempt lifecycle:
// pending → in_progress → submitted → reviewed.
type AssignmentStatus string

const (
	AssignmentPending    AssignmentStatus = "pending"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentSubmitted  AssignmentStatus = "submitted"
	AssignmentReviewed   AssignmentStatus = "reviewed"
)

// Decision values a researcher can record on a reviewed assignment.
const (
	DecisionAccepted = "accepted"
	DecisionRejected = "rejected"
)

// CompetencyAssignment is one participant's attempt at one assessment within
// one study enrollment. Answers maps question ID to the selected option index
// (or free text). Score is the MCQ auto-score computed at submission, as a
// fraction 0..1.
type CompetencyAssignment struct {
	ID           string           `json:"id"           gorm:"primaryKey;size:20"`
	AssessmentID string           `json:"assessmentId" gorm:"size:20;index;not null"`
	StudyID      string           `json:"studyId"      gorm:"size:20;index;not null"`
	EnrollmentID string           `json:"enrollmentId" gorm:"size:20;index;not null"`
	UserID       string           `json:"userId"       gorm:"size:20;index;not null"`
	Status       AssignmentStatus `json:"status"       gorm:"size:20;not null;default:'pending'"`
	Answers      JSONMap          `json:"answers"      gorm:"type:jsonb"`
	Score        float64          `json:"score"        gorm:"not null;default:0"`
	Decision     string           `json:"decision"     gorm:"size:20"`
	ReviewNotes  string           `json:"reviewNotes"  gorm:"type:text"`
	StartedAt    *time.Time       `json:"startedAt"`
	SubmittedAt  *time.Time       `json:"submittedAt"`
	ReviewedAt   *time.Time       `json:"reviewedAt"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`

	Assessment *CompetencyAssessment `json:"assessment,omitempty" gorm:"foreignKey:AssessmentID"`
	User       *User                 `json:"user,omitempty"       gorm:"foreignKey:UserID"`
}
