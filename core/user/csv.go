package user

import (
	"encoding/csv"
	"io"
	"time"
)

var csvHeader = []string{
	"id", "email", "phone", "parent_name", "student_name", "branch", "status", "household_token", "joined_at", "last_login",
}

func writeCSV(w io.Writer, users []User) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, usr := range users {
		var lastLogin string
		if !usr.LastLogin.IsZero() {
			lastLogin = usr.LastLogin.UTC().Format(time.RFC3339)
		}
		rec := []string{
			usr.ID,
			usr.Email,
			usr.Phone,
			usr.ParentName,
			usr.StudentName,
			usr.Branch,
			usr.Status,
			usr.HouseholdToken,
			usr.CreatedAt.UTC().Format(time.RFC3339),
			lastLogin,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
