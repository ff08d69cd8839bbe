package ev

// inner is a queued message before it becomes a public Event.
type inner interface {
	isInner()
}

// refreshSurface follows every role configure.
type refreshSurface struct {
	width, height uint32
}

// newDisplay announces an output bound after startup.
type newDisplay struct {
	output *Output
}

// outputRemoved is only logged.
type outputRemoved struct {
	name uint32
}

type xdgInfoChanged struct {
	kind XdgInfoKind
}

// protocolMessage passes a DispatchMessage through untouched.
type protocolMessage struct {
	msg DispatchMessage
}

func (refreshSurface) isInner()  {}
func (newDisplay) isInner()      {}
func (outputRemoved) isInner()   {}
func (xdgInfoChanged) isInner()  {}
func (protocolMessage) isInner() {}

// tagged is one queue entry. unit is 0 for untagged messages.
type tagged struct {
	unit UnitID
	msg  inner
}

// queue is the FIFO shared by every dispatch adapter. The loop swaps it
// out before draining so handlers may push while it is being consumed.
type queue struct {
	items []tagged
	spare []tagged
}

func (q *queue) push(unit UnitID, msg inner) {
	q.items = append(q.items, tagged{unit: unit, msg: msg})
}

func (q *queue) len() int {
	return len(q.items)
}

// targets reports whether a queued message is tagged with id.
func (q *queue) targets(id UnitID) bool {
	for _, t := range q.items {
		if t.unit == id {
			return true
		}
	}
	return false
}

// swap returns everything queued so far and leaves the queue empty.
func (q *queue) swap() []tagged {
	out := q.items
	q.items = q.spare[:0]
	q.spare = nil
	return out
}

// recycle hands a drained batch back for reuse.
func (q *queue) recycle(batch []tagged) {
	clear(batch)
	if q.spare == nil {
		q.spare = batch[:0]
	}
}

// unitRef turns a tag into the pointer handed to handlers.
func unitRef(id UnitID) *UnitID {
	if id == 0 {
		return nil
	}
	return &id
}
