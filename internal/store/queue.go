package store

// idQueue is an insertion-ordered set of ids, used for moderation queues.
type idQueue struct {
	order []string
	index map[string]struct{}
}

func newIDQueue() idQueue {
	return idQueue{index: make(map[string]struct{})}
}

func (q *idQueue) push(id string) {
	if _, ok := q.index[id]; ok {
		return
	}
	q.index[id] = struct{}{}
	q.order = append(q.order, id)
}

func (q *idQueue) remove(id string) bool {
	if _, ok := q.index[id]; !ok {
		return false
	}
	delete(q.index, id)
	for i, existing := range q.order {
		if existing == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return true
}

func (q *idQueue) contains(id string) bool {
	_, ok := q.index[id]
	return ok
}

func (q *idQueue) reset(ids []string) {
	q.order = q.order[:0]
	q.index = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		q.push(id)
	}
}
