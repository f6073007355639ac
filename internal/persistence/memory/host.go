package memory

import (
	"context"
	"sync"

	"github.com/jfederico/moodle-bbbext-bnurl/internal/host"
)

// Course is the stored form of a course; summaries are derived from it.
type Course struct {
	ID                       int64
	FullName                 string
	ShortName                string
	IDNumber                 string
	Summary                  string
	SummaryFormat            int
	StartDate                int64
	EndDate                  int64
	Visible                  bool
	ShowActivityDates        bool
	ShowCompletionConditions bool
	PDFExportFont            string
	CategoryName             string
}

// HostData keeps instances, courses and users in memory.
type HostData struct {
	mu        sync.RWMutex
	links     host.Links
	instances map[int64]host.Instance
	courses   map[int64]Course
	users     map[int64]host.UserProfile
}

// NewHostData constructs an empty store building URLs under baseURL.
func NewHostData(baseURL string) *HostData {
	return &HostData{
		links:     host.Links{BaseURL: baseURL},
		instances: make(map[int64]host.Instance),
		courses:   make(map[int64]Course),
		users:     make(map[int64]host.UserProfile),
	}
}

// PutInstance stores or replaces an activity instance.
func (h *HostData) PutInstance(instance host.Instance) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.instances[instance.ID] = instance
}

// PutCourse stores or replaces a course.
func (h *HostData) PutCourse(course Course) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.courses[course.ID] = course
}

// PutUser stores or replaces a user profile.
func (h *HostData) PutUser(user host.UserProfile) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users[user.ID] = user
}

// InstanceByID implements host.Accessor.
func (h *HostData) InstanceByID(ctx context.Context, instanceID int64) (*host.Instance, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	instance, ok := h.instances[instanceID]
	if !ok {
		return nil, host.ErrInstanceNotFound
	}
	return &instance, nil
}

// CourseSummary implements host.Accessor. Unknown courses yield nil.
func (h *HostData) CourseSummary(ctx context.Context, instance host.Instance) (*host.CourseSummary, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	course, ok := h.courses[instance.CourseID]
	if !ok {
		return nil, nil
	}
	return &host.CourseSummary{
		ID:                       course.ID,
		FullName:                 course.FullName,
		ShortName:                course.ShortName,
		IDNumber:                 course.IDNumber,
		Summary:                  course.Summary,
		SummaryFormat:            course.SummaryFormat,
		StartDate:                course.StartDate,
		EndDate:                  course.EndDate,
		Visible:                  course.Visible,
		ShowActivityDates:        course.ShowActivityDates,
		ShowCompletionConditions: course.ShowCompletionConditions,
		PDFExportFont:            course.PDFExportFont,
		FullNameDisplay:          course.FullName,
		ViewURL:                  h.links.CourseView(course.ID),
		Hidden:                   !course.Visible,
		ShowShortName:            course.ShortName != "",
		CourseCategory:           course.CategoryName,
	}, nil
}

// ActivitySummary implements host.Accessor.
func (h *HostData) ActivitySummary(ctx context.Context, instance host.Instance) (*host.ActivitySummary, error) {
	return &host.ActivitySummary{
		ID:      instance.CourseModuleID,
		Name:    instance.Name,
		URL:     h.links.ActivityView(instance.CourseModuleID),
		IconURL: h.links.ActivityIcon(),
	}, nil
}

// UserProfile implements host.Accessor.
func (h *HostData) UserProfile(ctx context.Context, userID int64) (*host.UserProfile, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	user, ok := h.users[userID]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// Seed loads a demo course with one conferencing activity and one user so a
// memory-backed server can be exercised without a host database.
func (h *HostData) Seed() {
	h.PutCourse(Course{
		ID:           2,
		FullName:     "Demo Course",
		ShortName:    "DEMO",
		Summary:      "Course used for local development",
		Visible:      true,
		CategoryName: "Miscellaneous",
	})
	h.PutInstance(host.Instance{ID: 1, CourseID: 2, CourseModuleID: 10, Name: "Demo Meeting"})
	h.PutUser(host.UserProfile{ID: 2, FirstName: "Admin", LastName: "User", Email: "admin@example.com"})
}
