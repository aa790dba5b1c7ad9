package model

import "time"

// Project is an uploaded file bundle owned by a single user. Project
// names are unique across the whole platform, not per owner, because
// they form the first segment of the blob key namespace.
type Project struct {
	ID        uint64    // projects.id
	Name      string    // projects.name
	OwnerID   string    // projects.owner_id
	CreatedAt time.Time // projects.created_at
	UpdatedAt time.Time // projects.updated_at
}

// ProjectVersion is one published revision of a project. Labels are
// "v1", "v2", ... derived from the numeric suffix of the most recent
// version, so they keep increasing even after deletions. At most one
// version per project is active at any time, and exactly one must be
// active whenever any versions exist at all.
type ProjectVersion struct {
	ID        uint64    // project_versions.id
	ProjectID uint64    // project_versions.project_id
	Version   string    // project_versions.version
	Active    bool      // project_versions.active
	CreatedAt time.Time // project_versions.created_at
}
