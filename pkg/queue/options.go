package queue

type options struct {
	maxConsumers int
	maxProducers int
}

type Option interface {
	Apply(o *options)
}

type queueOptionFunc func(*options)

func (f queueOptionFunc) Apply(o *options) {
	f(o)
}

func WithMaxConsumers(max int) Option {
	return queueOptionFunc(func(o *options) {
		o.maxConsumers = max
	})
}

func WithMaxProducers(max int) Option {
	return queueOptionFunc(func(o *options) {
		o.maxProducers = max
	})
}
