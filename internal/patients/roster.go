package patients

import "github.com/google/uuid"

// Roster is a partitioned view of a therapist's patients: standalone
// entries (anything that bills on its own line) and the child index for
// institution aggregation.
type Roster struct {
	Standalone []Patient

	childrenOf map[uuid.UUID][]Patient
}

// PartitionRoster splits the patient list into standalone patients and
// the children-by-parent index. A patient is standalone when it is an
// institution, or when it has no parent; children appear only under
// their parent's match set. Input order is preserved.
func PartitionRoster(list []Patient) Roster {
	r := Roster{childrenOf: make(map[uuid.UUID][]Patient)}
	for _, p := range list {
		if p.IsChild() && !p.IsInstitution() {
			r.childrenOf[*p.ParentID] = append(r.childrenOf[*p.ParentID], p)
			continue
		}
		r.Standalone = append(r.Standalone, p)
	}
	return r
}

// Children returns the child patients billed under the given parent.
func (r Roster) Children(parentID uuid.UUID) []Patient {
	return r.childrenOf[parentID]
}

// MatchSet returns the patients an event label may match for the given
// standalone patient: the patient itself, plus its children when it is
// an institution.
func (r Roster) MatchSet(p Patient) []Patient {
	if !p.IsInstitution() {
		return []Patient{p}
	}
	set := make([]Patient, 0, 1+len(r.childrenOf[p.ID]))
	set = append(set, p)
	set = append(set, r.childrenOf[p.ID]...)
	return set
}
