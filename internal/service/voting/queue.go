package voting

import (
	"github.com/campusvote/server/internal/db"
	svcErr "github.com/campusvote/server/internal/errors"
)

// Queue names identify the candidate pool being voted on, not the voter:
// the girls queue serves female candidates to male voters and vice versa.
const (
	QueueBoys  = "boys"
	QueueGirls = "girls"
)

// CandidateGender maps a queue name to the gender of its candidates.
func CandidateGender(queue string) (string, error) {
	switch queue {
	case QueueBoys:
		return db.GenderMale, nil
	case QueueGirls:
		return db.GenderFemale, nil
	}
	return "", svcErr.InvalidArgument("unknown voting queue")
}
