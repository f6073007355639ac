// Package host describes the read-only data the conferencing activity module
// exposes to extension plugins: activity instances and the user, course and
// activity projections placeholders resolve against.
package host

import (
	"context"
	"errors"
)

// ErrInstanceNotFound is returned when an activity instance cannot be located.
var ErrInstanceNotFound = errors.New("activity instance not found")

// Instance is a conferencing activity as stored by the host.
type Instance struct {
	ID             int64
	CourseID       int64
	CourseModuleID int64
	Name           string
}

// UserProfile holds the identity and name fields of a user. Only fields
// carrying an export tag can be referenced by placeholders.
type UserProfile struct {
	ID                int64
	AlternateName     string `export:"alternatename"`
	Email             string `export:"email"`
	FirstName         string `export:"firstname"`
	FirstNamePhonetic string `export:"firstnamephonetic"`
	LastName          string `export:"lastname"`
	LastNamePhonetic  string `export:"lastnamephonetic"`
	MiddleName        string `export:"middlename"`
}

// CourseSummary is the course projection shared with plugins. Per-viewer
// values (progress, favourite, last access) are left unset by accessors that
// cannot compute them.
type CourseSummary struct {
	ID                       int64  `export:"id"`
	FullName                 string `export:"fullname"`
	ShortName                string `export:"shortname"`
	IDNumber                 string `export:"idnumber"`
	Summary                  string `export:"summary"`
	SummaryFormat            int    `export:"summaryformat"`
	StartDate                int64  `export:"startdate"`
	EndDate                  int64  `export:"enddate"`
	Visible                  bool   `export:"visible"`
	ShowActivityDates        bool   `export:"showactivitydates"`
	ShowCompletionConditions bool   `export:"showcompletionconditions"`
	PDFExportFont            string `export:"pdfexportfont"`
	FullNameDisplay          string `export:"fullnamedisplay"`
	ViewURL                  string `export:"viewurl"`
	CourseImage              string `export:"courseimage"`
	Progress                 *int   `export:"progress"`
	HasProgress              bool   `export:"hasprogress"`
	IsFavourite              bool   `export:"isfavourite"`
	Hidden                   bool   `export:"hidden"`
	TimeAccess               *int64 `export:"timeaccess"`
	ShowShortName            bool   `export:"showshortname"`
	CourseCategory           string `export:"coursecategory"`
}

// ActivitySummary is the course-module projection of an activity instance.
type ActivitySummary struct {
	ID      int64  `export:"id"`
	Name    string `export:"name"`
	URL     string `export:"url"`
	IconURL string `export:"iconurl"`
}

// Accessor reads host data. Implementations return ErrInstanceNotFound for
// unknown instances and (nil, nil) for unknown users.
type Accessor interface {
	InstanceByID(ctx context.Context, instanceID int64) (*Instance, error)
	CourseSummary(ctx context.Context, instance Instance) (*CourseSummary, error)
	ActivitySummary(ctx context.Context, instance Instance) (*ActivitySummary, error)
	UserProfile(ctx context.Context, userID int64) (*UserProfile, error)
}
