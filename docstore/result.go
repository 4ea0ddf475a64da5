package docstore

// ResultKind tags the shape held by a [Result].
type ResultKind int

const (
	// Absent means no document was produced.
	Absent ResultKind = iota
	// Single holds exactly one document.
	Single
	// Many holds a list of documents, possibly empty.
	Many
)

func (k ResultKind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Single:
		return "single"
	case Many:
		return "many"
	default:
		return "unknown"
	}
}

// Result is the outcome of an update: nothing, one document, or a list.
// Which shape a call returns is fixed by its options, never by the data:
// see [UpdateOptions].
type Result struct {
	kind ResultKind
	docs []Document
}

// AbsentResult returns a Result holding nothing.
func AbsentResult() Result { return Result{kind: Absent} }

// SingleResult returns a Result holding d.
func SingleResult(d Document) Result {
	return Result{kind: Single, docs: []Document{d}}
}

// ManyResult returns a Result holding ds. A nil slice is kept as empty.
func ManyResult(ds []Document) Result {
	if ds == nil {
		ds = []Document{}
	}
	return Result{kind: Many, docs: ds}
}

// Kind returns the result's shape.
func (r Result) Kind() ResultKind { return r.kind }

// IsAbsent reports whether the result holds nothing.
func (r Result) IsAbsent() bool { return r.kind == Absent }

// Document returns the held document for a Single result.
func (r Result) Document() (Document, bool) {
	if r.kind != Single {
		return nil, false
	}
	return r.docs[0], true
}

// Documents returns the held documents: the list for Many, a one-element
// list for Single, nil for Absent.
func (r Result) Documents() []Document {
	return r.docs
}
