package pkg

// Runnable is a long running component. Done is closed once it has stopped,
// after which Err tells why.
type Runnable interface {
	Start() error
	Stop()
	Done() <-chan struct{}
	Err() error
}
