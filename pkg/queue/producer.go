package queue

type Producer[T any] struct {
	id string
	q  *Queue[T]
}

func (p *Producer[T]) Produce(value T) error {
	return p.q.produce(p.id, value)
}
