package wconn

// Change is one update to an endpoint's set of live connections.
type Change struct {
	// The connection involved in the change.
	Conn *Conn

	// If true, the connection was just established.
	// Otherwise, the connection has terminated.
	Adding bool
}

// ChangeFeed is a linked list of connection changes.
// The list has a single writer and any number of readers,
// each consuming at its own pace.
//
// Wait on Ready; once it is closed,
// Val and Next are safe to read.
//
// A reader that stops consuming pins every later node in memory,
// which is a memory leak.
type ChangeFeed struct {
	Ready chan struct{}
	Next  *ChangeFeed
	Val   Change
}

// NewChangeFeed returns the head of an empty feed.
func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{
		Ready: make(chan struct{}),
	}
}

// Publish assigns f's value, initializes f.Next,
// and closes f.Ready so observers know f.Val is safe to read.
//
// Calling Publish twice on the same node panics.
func (f *ChangeFeed) Publish(c Change) {
	f.Val = c
	f.Next = NewChangeFeed()
	close(f.Ready)
}
