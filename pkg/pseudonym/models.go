package pseudonym

import "time"

// Identifier types with type-appropriate pseudonym shapes. The set is open:
// unknown types still resolve to an opaque token.
const (
	TypePatientID         = "patient_id"
	TypePractitionerID    = "practitioner_id"
	TypeOrganizationID    = "organization_id"
	TypePatientIdentifier = "patient_identifier"
	TypeName              = "name"
	TypePhone             = "phone"
	TypeEmail             = "email"
)

// MappingRecord is the durable identifier-to-pseudonym mapping. Rows are
// append-only: a pseudonym, once assigned, is never reassigned or deleted.
type MappingRecord struct {
	ID                 uint      `gorm:"primaryKey;column:id"`
	OriginalIdentifier string    `gorm:"column:original_identifier;uniqueIndex:idx_original_type"`
	IdentifierType     string    `gorm:"column:identifier_type;uniqueIndex:idx_original_type"`
	Pseudonym          string    `gorm:"column:pseudonym_identifier"`
	SaltUsed           string    `gorm:"column:salt_used"`
	CreatedAt          time.Time `gorm:"column:created_at"`
}

func (MappingRecord) TableName() string {
	return "pseudonym_mapping"
}
