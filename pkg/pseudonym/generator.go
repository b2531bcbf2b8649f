package pseudonym

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

// Generate derives a pseudonym from the original identifier, its type and the
// process-wide salt. It is a pure function: the same inputs always produce
// the same pseudonym, which is what makes re-delivery and cross-stage joins
// safe even when the durable store is unavailable.
func Generate(originalID, identifierType, salt string) string {
	sum := sha256.Sum256([]byte(originalID + ":" + identifierType + ":" + salt))
	seed := binary.BigEndian.Uint64(sum[:8])
	faker := gofakeit.New(seed)

	switch identifierType {
	case TypePatientID:
		return fmt.Sprintf("PATIENT_%06d", faker.Number(0, 999999))
	case TypePractitionerID:
		return fmt.Sprintf("PRACT_%05d", faker.Number(0, 99999))
	case TypeOrganizationID:
		return fmt.Sprintf("ORG_%04d", faker.Number(0, 9999))
	case TypeName:
		return faker.Name()
	case TypePhone:
		return faker.Phone()
	case TypeEmail:
		return faker.Email()
	default:
		return "PSEUDO_" + strings.ToUpper(hex.EncodeToString(sum[:6]))
	}
}
