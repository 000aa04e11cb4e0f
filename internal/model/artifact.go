package model

import "time"

// Artifact is an uploaded file under study: human- or AI-generated content
// that participants evaluate. The bytes live on disk under StoragePath; the
// row carries only metadata.
type Artifact struct {
	ID           string    `json:"id"           gorm:"primaryKey;size:20"`
	OwnerID      string    `json:"ownerId"      gorm:"size:20;index;not null"`
	CollectionID string    `json:"collectionId" gorm:"size:20;index"`
	Title        string    `json:"title"        gorm:"size:300;not null"`
	Kind         string    `json:"kind"         gorm:"size:40"` // e.g. "code", "document", "image"
	FileName     string    `json:"fileName"     gorm:"size:300"`
	StoragePath  string    `json:"-"            gorm:"size:500"`
	MimeType     string    `json:"mimeType"     gorm:"size:100"`
	SizeBytes    int64     `json:"sizeBytes"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Tags []Tag `json:"tags,omitempty" gorm:"many2many:artifact_tags"`
}

// ArtifactCollection groups artifacts for bulk attachment to studies.
type ArtifactCollection struct {
	ID          string    `json:"id"          gorm:"primaryKey;size:20"`
	OwnerID     string    `json:"ownerId"     gorm:"size:20;index;not null"`
	Name        string    `json:"name"        gorm:"size:200;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Artifacts []Artifact `json:"artifacts,omitempty" gorm:"foreignKey:CollectionID"`
}

// Tag labels artifacts across collections. Names are unique per owner.
type Tag struct {
	ID        string    `json:"id"        gorm:"primaryKey;size:20"`
	OwnerID   string    `json:"ownerId"   gorm:"size:20;index:idx_tag_owner_name,unique;not null"`
	Name      string    `json:"name"      gorm:"size:100;index:idx_tag_owner_name,unique;not null"`
	Color     string    `json:"color"     gorm:"size:20"`
	CreatedAt time.Time `json:"createdAt"`
}
