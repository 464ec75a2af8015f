package download

// admissionQueue is the FIFO of waiting task IDs. It is guarded by the
// service mutex.
type admissionQueue struct {
	ids []string
}

func (q *admissionQueue) push(id string) {
	q.ids = append(q.ids, id)
}

func (q *admissionQueue) pop() (string, bool) {
	if len(q.ids) == 0 {
		return "", false
	}
	id := q.ids[0]
	q.ids[0] = ""
	q.ids = q.ids[1:]
	return id, true
}

// remove drops id from the queue and reports whether it was present
func (q *admissionQueue) remove(id string) bool {
	for i, queued := range q.ids {
		if queued == id {
			q.ids = append(q.ids[:i], q.ids[i+1:]...)
			return true
		}
	}
	return false
}
