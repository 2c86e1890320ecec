package belt

// Timer is the collaborator that invokes a belt at the right moment.
//
// Schedule requests one future call of the listener. Calls made before the
// timer fires must coalesce into a single invocation.
type Timer interface {
	SetListener(fn func())
	Schedule()
}
