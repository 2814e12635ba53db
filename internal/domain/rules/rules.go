// Package rules holds the pure validation rules of the user directory.
package rules

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/oksasatya/go-user-directory/pkg/apperror"
)

// MinimumAge fails when birthDate is strictly after today minus minAge years,
// i.e. the person has not reached minAge yet.
func MinimumAge(birthDate, today civil.Date, minAge int) error {
	if birthDate.After(MinusYears(today, minAge)) {
		return apperror.Validationf("User must be at least %d years old.", minAge)
	}
	return nil
}

// DateRangeOrder fails when from is strictly after to.
func DateRangeOrder(from, to civil.Date) error {
	if from.After(to) {
		return apperror.NewValidation("'From' date must be before 'To' date.")
	}
	return nil
}

// MinusYears subtracts whole years from d. Feb 29 clamps to Feb 28 when the target
// year is not a leap year.
func MinusYears(d civil.Date, years int) civil.Date {
	out := civil.Date{Year: d.Year - years, Month: d.Month, Day: d.Day}
	if last := daysIn(out.Year, out.Month); out.Day > last {
		out.Day = last
	}
	return out
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
