package domain

import (
	"time"
	_ "time/tzdata" // the exam site and the spreadsheet speak Europe/Berlin
)

// Berlin is the local time zone of the exam site and the subscription form.
var Berlin = mustLoadLocation("Europe/Berlin")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("domain: load location " + name + ": " + err.Error())
	}
	return loc
}
