package ust

// Reference records an external namespace/assembly used by captured code.
// Identity is the (Namespace, Assembly) pair; AssemblyLocation is metadata.
type Reference struct {
	Namespace        string `json:"namespace"`
	Assembly         string `json:"assembly"`
	AssemblyLocation string `json:"assembly_location,omitempty"`
}

type referenceKey struct {
	namespace string
	assembly  string
}

func (r Reference) key() referenceKey {
	return referenceKey{namespace: r.Namespace, assembly: r.Assembly}
}

// Equal compares references by namespace and assembly only.
func (r Reference) Equal(other Reference) bool {
	return r.key() == other.key()
}

// HasReference reports whether an equal reference is already recorded.
func (r *Root) HasReference(ref Reference) bool {
	r.ensureRefIndex()
	_, ok := r.refIndex[ref.key()]
	return ok
}

// AddReference appends ref unless an equal reference is present. It returns
// whether ref was added.
func (r *Root) AddReference(ref Reference) bool {
	r.ensureRefIndex()
	k := ref.key()
	if _, ok := r.refIndex[k]; ok {
		return false
	}
	r.refIndex[k] = struct{}{}
	r.References = append(r.References, ref)
	return true
}

func (r *Root) ensureRefIndex() {
	if r.refIndex != nil {
		return
	}
	r.refIndex = make(map[referenceKey]struct{}, len(r.References))
	for _, ref := range r.References {
		r.refIndex[ref.key()] = struct{}{}
	}
}
