// Package exam hands entrance-exam reservations off to the external form
// service. Reservation state lives entirely on that service.
package exam

import (
	"net/url"

	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/entrance"
)

var ErrNotExamTrack = errors.New("branch has no entrance exam")

// Applicant is what gets prefilled on the reservation form.
type Applicant struct {
	Name  string
	Email string
	Phone string
	Token string // household token
}

// ReservationURL returns the reservation form URL prefilled with the applicant's details.
// Empty applicant fields are left out.
func ReservationURL(conf core.ExamConfig, app Applicant, branch entrance.BranchType) (string, error) {
	if !branch.IsExamTrack() {
		return "", ErrNotExamTrack
	}
	u, err := url.Parse(conf.FormURL)
	if err != nil {
		return "", errors.Wrap(err, "parsing exam form url")
	}

	q := u.Query()
	set := func(field, val string) {
		if field != "" && val != "" {
			q.Set(field, val)
		}
	}
	set(conf.NameField, app.Name)
	set(conf.EmailField, app.Email)
	set(conf.PhoneField, app.Phone)
	set(conf.TokenField, app.Token)
	set(conf.BranchField, string(branch))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
