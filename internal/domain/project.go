package domain

import "time"

// Project is the minimal local record of a construction project. Full
// project CRUD lives elsewhere; foreman only needs identity and a name to
// answer existence checks and label output.
type Project struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Resource is a registered material, worker, vehicle or team that detail
// lines and inventory rows may reference.
type Resource struct {
	ID        string
	Kind      ResourceKind
	Name      string
	Unit      string
	CreatedAt time.Time
}

// Ref returns the tagged reference for this resource.
func (r *Resource) Ref() ResourceRef {
	return ResourceRef{kind: r.Kind, id: r.ID}
}
