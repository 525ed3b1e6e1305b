// Package imagetag composes and parses the docker image tags that identify a
// single CI run's build. A tag is derived once from the repository name,
// branch, and workflow ID, and is immutable for the lifetime of the run; every
// downstream job refers to the same tag.
package imagetag

import (
	"fmt"
	"strings"
)

// TemplateTag is the tag under which a fully verified image is republished as
// the cached base layer for future builds.
const TemplateTag = "template"

// Tag identifies one CI build of the pipeline image.
type Tag struct {
	Repository string
	Branch     string
	WorkflowID string
}

// New composes a Tag from its parts, sanitizing the branch name so the result
// is a valid docker reference.
func New(repository, branch, workflowID string) (Tag, error) {
	if repository == "" {
		return Tag{}, fmt.Errorf("repository must not be empty")
	}
	if branch == "" {
		return Tag{}, fmt.Errorf("branch must not be empty")
	}
	if workflowID == "" {
		return Tag{}, fmt.Errorf("workflow ID must not be empty")
	}
	return Tag{
		Repository: repository,
		Branch:     Sanitize(branch),
		WorkflowID: workflowID,
	}, nil
}

// String renders the tag as "<repository>:<branch>_<workflow-id>".
func (t Tag) String() string {
	return fmt.Sprintf("%s:%s_%s", t.Repository, t.Branch, t.WorkflowID)
}

// Template renders the template reference for the tag's repository, i.e. the
// name the image is retagged to once every verification job has passed.
func (t Tag) Template() string {
	return fmt.Sprintf("%s:%s", t.Repository, TemplateTag)
}

// Sanitize maps a git branch name onto the docker tag character set. Slashes
// and other disallowed characters become hyphens.
func Sanitize(branch string) string {
	var sb strings.Builder
	sb.Grow(len(branch))
	for _, r := range branch {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	return sb.String()
}
