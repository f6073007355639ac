package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/host"
)

// HostAccessor reads activity, course and user records from the host tables.
type HostAccessor struct {
	pool  *pgxpool.Pool
	links host.Links
}

// NewHostAccessor constructs a HostAccessor building URLs under baseURL.
func NewHostAccessor(pool *pgxpool.Pool, baseURL string) *HostAccessor {
	return &HostAccessor{pool: pool, links: host.Links{BaseURL: baseURL}}
}

// InstanceByID implements host.Accessor.
func (a *HostAccessor) InstanceByID(ctx context.Context, instanceID int64) (*host.Instance, error) {
	const query = `SELECT b.id, b.course, COALESCE(cm.id, 0), b.name
        FROM bigbluebuttonbn b
        LEFT JOIN course_modules cm ON cm.instance = b.id AND cm.modname = $2
        WHERE b.id=$1`

	var instance host.Instance
	err := a.pool.QueryRow(ctx, query, instanceID, host.ModuleName).
		Scan(&instance.ID, &instance.CourseID, &instance.CourseModuleID, &instance.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, host.ErrInstanceNotFound
		}
		return nil, err
	}
	return &instance, nil
}

// CourseSummary implements host.Accessor. Per-viewer fields stay unset.
func (a *HostAccessor) CourseSummary(ctx context.Context, instance host.Instance) (*host.CourseSummary, error) {
	const query = `SELECT c.id, c.fullname, c.shortname, c.idnumber, c.summary, c.summaryformat,
            c.startdate, c.enddate, c.visible, c.showactivitydates, c.showcompletionconditions,
            c.pdfexportfont, COALESCE(cc.name, '')
        FROM course c
        LEFT JOIN course_categories cc ON cc.id = c.category
        WHERE c.id=$1`

	var s host.CourseSummary
	err := a.pool.QueryRow(ctx, query, instance.CourseID).Scan(
		&s.ID, &s.FullName, &s.ShortName, &s.IDNumber, &s.Summary, &s.SummaryFormat,
		&s.StartDate, &s.EndDate, &s.Visible, &s.ShowActivityDates, &s.ShowCompletionConditions,
		&s.PDFExportFont, &s.CourseCategory,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.FullNameDisplay = s.FullName
	s.ViewURL = a.links.CourseView(s.ID)
	s.Hidden = !s.Visible
	s.ShowShortName = s.ShortName != ""
	return &s, nil
}

// ActivitySummary implements host.Accessor.
func (a *HostAccessor) ActivitySummary(ctx context.Context, instance host.Instance) (*host.ActivitySummary, error) {
	return &host.ActivitySummary{
		ID:      instance.CourseModuleID,
		Name:    instance.Name,
		URL:     a.links.ActivityView(instance.CourseModuleID),
		IconURL: a.links.ActivityIcon(),
	}, nil
}

// UserProfile implements host.Accessor. Deleted and unknown users yield nil.
func (a *HostAccessor) UserProfile(ctx context.Context, userID int64) (*host.UserProfile, error) {
	const query = `SELECT id, alternatename, email, firstname, firstnamephonetic, lastname, lastnamephonetic, middlename
        FROM "user" WHERE id=$1 AND NOT deleted`

	var u host.UserProfile
	err := a.pool.QueryRow(ctx, query, userID).Scan(
		&u.ID, &u.AlternateName, &u.Email, &u.FirstName, &u.FirstNamePhonetic, &u.LastName, &u.LastNamePhonetic, &u.MiddleName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
