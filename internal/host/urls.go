package host

import (
	"net/url"
	"strconv"
	"strings"
)

// ModuleName is the host plugin name of the conferencing activity.
const ModuleName = "bigbluebuttonbn"

// Links builds the absolute URLs exposed in summaries.
type Links struct {
	BaseURL string
}

// CourseView returns the course landing page URL.
func (l Links) CourseView(courseID int64) string {
	return l.build("/course/view.php", "id", courseID)
}

// ActivityView returns the activity page URL for a course module.
func (l Links) ActivityView(courseModuleID int64) string {
	return l.build("/mod/"+ModuleName+"/view.php", "id", courseModuleID)
}

// ActivityIcon returns the monochrome activity icon URL.
func (l Links) ActivityIcon() string {
	return strings.TrimRight(l.BaseURL, "/") + "/theme/image.php/boost/" + ModuleName + "/1/monologo"
}

func (l Links) build(path, key string, id int64) string {
	query := url.Values{}
	query.Set(key, strconv.FormatInt(id, 10))
	return strings.TrimRight(l.BaseURL, "/") + path + "?" + query.Encode()
}
