package domain

import "fmt"

// ResourceRef is a kind-tagged reference to exactly one material, worker,
// vehicle or team. The fields are unexported so a ref can only be built
// through the constructors below: a valid ref always carries one kind and
// one non-empty ID.
type ResourceRef struct {
	kind ResourceKind
	id   string
}

func Material(id string) ResourceRef { return ResourceRef{kind: ResourceMaterial, id: id} }
func Worker(id string) ResourceRef   { return ResourceRef{kind: ResourceWorker, id: id} }
func Vehicle(id string) ResourceRef  { return ResourceRef{kind: ResourceVehicle, id: id} }
func Team(id string) ResourceRef     { return ResourceRef{kind: ResourceTeam, id: id} }

// NewResourceRef validates kind and id and returns the matching ref.
func NewResourceRef(kind, id string) (ResourceRef, error) {
	k, err := ParseResourceKind(kind)
	if err != nil {
		return ResourceRef{}, err
	}
	if id == "" {
		return ResourceRef{}, Validationf("%s resource id is required", k)
	}
	return ResourceRef{kind: k, id: id}, nil
}

func (r ResourceRef) Kind() ResourceKind { return r.kind }
func (r ResourceRef) ID() string         { return r.id }

// IsZero reports whether the ref was never populated.
func (r ResourceRef) IsZero() bool { return r.kind == "" && r.id == "" }

func (r ResourceRef) String() string {
	return fmt.Sprintf("%s:%s", r.kind, r.id)
}

// Validate rejects zero refs and refs built outside the constructors.
func (r ResourceRef) Validate() error {
	if r.IsZero() {
		return Validationf("resource reference is required")
	}
	if _, err := NewResourceRef(string(r.kind), r.id); err != nil {
		return err
	}
	return nil
}
