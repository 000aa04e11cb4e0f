package model

import "time"

// StudyStatus is the lifecycle of a study. Studies are soft-retired via
// StatusArchived rather than deleted, so enrollments and submissions keep
// their foreign keys.
type StudyStatus string

const (
	StudyDraft     StudyStatus = "draft"
	StudyActive    StudyStatus = "active"
	StudyCompleted StudyStatus = "completed"
	StudyArchived  StudyStatus = "archived"
)

// CanTransitionTo reports whether moving from s to next is a legal lifecycle
// step. Archiving is allowed from any state; everything else moves forward
// only.
func (s StudyStatus) CanTransitionTo(next StudyStatus) bool {
	if next == StudyArchived {
		return s != StudyArchived
	}
	switch s {
	case StudyDraft:
		return next == StudyActive
	case StudyActive:
		return next == StudyCompleted
	}
	return false
}

// Metadata keys understood by the Study.Metadata blob. Anything else in the
// blob is carried verbatim for the client.
const (
	MetaIsPublic            = "isPublic"
	MetaIsBlinded           = "isBlinded"
	MetaDefaultArtifactMode = "defaultArtifactMode"
)

// Study is a researcher-owned evaluation campaign: a set of artifacts, a set
// of enrolled participants, and optionally a competency screening gate.
type Study struct {
	ID           string      `json:"id"           gorm:"primaryKey;size:20"`
	ResearcherID string      `json:"researcherId" gorm:"size:20;index;not null"`
	Title        string      `json:"title"        gorm:"size:300;not null"`
	Description  string      `json:"description"  gorm:"type:text"`
	Criteria     JSONMap     `json:"criteria"     gorm:"type:jsonb"`
	Status       StudyStatus `json:"status"       gorm:"size:20;not null;default:'draft'"`
	StartsAt     *time.Time  `json:"startsAt"`
	EndsAt       *time.Time  `json:"endsAt"`
	Metadata     JSONMap     `json:"metadata"     gorm:"type:jsonb"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`

	Researcher   *User              `json:"researcher,omitempty"   gorm:"foreignKey:ResearcherID"`
	Artifacts    []StudyArtifact    `json:"artifacts,omitempty"    gorm:"foreignKey:StudyID"`
	Participants []StudyParticipant `json:"participants,omitempty" gorm:"foreignKey:StudyID"`
}

// IsPublic reports whether the study is readable without enrollment.
func (s *Study) IsPublic() bool { return s.Metadata.Bool(MetaIsPublic, false) }

// DefaultMode is the artifact-assessment mode the study points new
// participants at when no explicit next assignment has been set.
func (s *Study) DefaultMode() string {
	return s.Metadata.String(MetaDefaultArtifactMode, string(ModeStage1))
}

// StudyArtifact attaches an artifact to a study with a display label and a
// stable ordering position.
type StudyArtifact struct {
	ID           string    `json:"id"           gorm:"primaryKey;size:20"`
	StudyID      string    `json:"studyId"      gorm:"size:20;index;not null"`
	ArtifactID   string    `json:"artifactId"   gorm:"size:20;index;not null"`
	DisplayLabel string    `json:"displayLabel" gorm:"size:200"`
	Position     int       `json:"position"     gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"createdAt"`

	Artifact *Artifact `json:"artifact,omitempty" gorm:"foreignKey:ArtifactID"`
}

// ParticipationStatus is an enrollment's lifecycle flag. Note that the
// progress aggregator treats this as advisory: a stale in_progress flag is
// overridden when submitted work proves the participant finished.
type ParticipationStatus string

const (
	ParticipationInvited    ParticipationStatus = "invited"
	ParticipationInProgress ParticipationStatus = "in_progress"
	ParticipationCompleted  ParticipationStatus = "completed"
	ParticipationWithdrawn  ParticipationStatus = "withdrawn"
)

// StudyParticipant is one user's enrollment in one study.
//
// NextMode/NextStudyArtifactID form the "next assignment" pointer the
// dashboard resumes from. TimerCheckpoint is opaque client JSON (elapsed-time
// bookkeeping); the server stores and echoes it but never interprets it.
type StudyParticipant struct {
	ID                  string              `json:"id"                  gorm:"primaryKey;size:20"`
	StudyID             string              `json:"studyId"             gorm:"size:20;index:idx_enrollment,unique;not null"`
	UserID              string              `json:"userId"              gorm:"size:20;index:idx_enrollment,unique;not null"`
	ParticipationStatus ParticipationStatus `json:"participationStatus" gorm:"size:20;not null;default:'invited'"`
	ProgressPercent     int                 `json:"progressPercent"     gorm:"not null;default:0"`
	NextMode            string              `json:"nextMode"            gorm:"size:30"`
	NextStudyArtifactID string              `json:"nextStudyArtifactId" gorm:"size:20"`
	TimerCheckpoint     JSONMap             `json:"timerCheckpoint"     gorm:"type:jsonb"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`

	Study                *Study                `json:"study,omitempty"                gorm:"foreignKey:StudyID"`
	User                 *User                 `json:"user,omitempty"                 gorm:"foreignKey:UserID"`
	CompetencyAssignment *CompetencyAssignment `json:"competencyAssignment,omitempty" gorm:"foreignKey:EnrollmentID"`
	ArtifactAssessments  []ArtifactAssessment  `json:"artifactAssessments,omitempty"  gorm:"foreignKey:EnrollmentID"`
}

// ActionLog is the audit trail for destructive researcher actions
// (archive/delete study). Rows are append-only.
type ActionLog struct {
	ID         string    `json:"id"         gorm:"primaryKey;size:20"`
	UserID     string    `json:"userId"     gorm:"size:20;index;not null"`
	Action     string    `json:"action"     gorm:"size:60;not null"`
	EntityType string    `json:"entityType" gorm:"size:60;not null"`
	EntityID   string    `json:"entityId"   gorm:"size:20;index"`
	Detail     string    `json:"detail"     gorm:"type:text"`
	CreatedAt  time.Time `json:"createdAt"`
}
